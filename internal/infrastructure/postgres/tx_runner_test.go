package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/inkhouse/bookstock/internal/domain"
)

func TestClassifyMarksRetrySafeFailures(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		err := classify(fmt.Errorf("exec movement insert: %w", &pgconn.PgError{Code: code, Message: "aborted"}))
		assert.ErrorIs(t, err, domain.ErrTransientStore, "code %s", code)
	}
}

func TestClassifyLeavesOtherErrorsAlone(t *testing.T) {
	assert.Nil(t, classify(nil))

	plain := errors.New("connection refused")
	assert.Equal(t, plain, classify(plain))

	unique := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key"})
	assert.Equal(t, unique, classify(unique))
	assert.NotErrorIs(t, classify(unique), domain.ErrTransientStore)
}
