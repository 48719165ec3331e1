package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentUpsert() UpsertConfig {
	return UpsertConfig{
		Table:        "content_records",
		Columns:      []string{"slug", "vehicle_data", "updated_at"},
		ConflictKeys: []string{"slug"},
	}
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, contentUpsert(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_InvalidConfig(t *testing.T) {
	cfg := contentUpsert()
	cfg.Columns = nil
	_, err := BulkUpsert(context.Background(), nil, cfg, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")

	cfg = contentUpsert()
	cfg.ConflictKeys = nil
	_, err = BulkUpsert(context.Background(), nil, cfg, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_CopiesAndMerges(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"fiat-argo", "{}", "2025-01-01"}, {"toyota-hilux", "{}", "2025-01-01"}}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_content_records" \(LIKE "content_records"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_content_records"}, []string{"slug", "vehicle_data", "updated_at"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "content_records" .* ON CONFLICT \("slug"\) DO UPDATE SET "vehicle_data" = EXCLUDED."vehicle_data", "updated_at" = EXCLUDED."updated_at"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, contentUpsert(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"simple"`, sanitizeTable("simple"))
	assert.Equal(t, `"content"."records"`, sanitizeTable("content.records"))
	assert.Equal(t, `"id", "name"`, quoteAndJoin([]string{"id", "name"}))
}
