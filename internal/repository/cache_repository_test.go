package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "gradebook:")
	var dest map[string]interface{}

	assert.ErrorIs(t, repo.Get(context.Background(), "dash:class:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "dash:class:1", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "dash:*"))
	assert.NoError(t, repo.Close())
	assert.Equal(t, "gradebook:dash:x", repo.key("dash:x"))
}
