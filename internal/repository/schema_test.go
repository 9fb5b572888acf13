package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/craftlink/craftlink-backend/internal/models"
)

// readSchema склеивает все файлы миграций в один текст.
func readSchema(t *testing.T) string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.sql"))
	if err != nil || len(paths) == 0 {
		t.Fatalf("файлы миграций не найдены: %v", err)
	}
	var b strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("чтение %s: %v", p, err)
		}
		b.Write(data)
	}
	return b.String()
}

// tableDDL вырезает описание одной таблицы из общего текста схемы.
func tableDDL(t *testing.T, schema, table string) string {
	t.Helper()
	marker := "CREATE TABLE IF NOT EXISTS " + table + " ("
	start := strings.Index(schema, marker)
	if start < 0 {
		t.Fatalf("таблица %s отсутствует в миграциях", table)
	}
	rest := schema[start:]
	end := strings.Index(rest, "\n);")
	if end < 0 {
		t.Fatalf("описание таблицы %s не закрыто", table)
	}
	return rest[:end]
}

// Статусы, которые пишет код сдач, должны проходить CHECK-ограничения схемы.
func TestSchema_SubmissionStatusesAllowed(t *testing.T) {
	schema := readSchema(t)

	updates := tableDDL(t, schema, "job_updates")
	for _, status := range []string{
		models.JobUpdateStatusPendingReview,
		models.JobUpdateStatusApproved,
		models.JobUpdateStatusNeedsChanges,
		models.JobUpdateStatusAcknowledged,
	} {
		assert.Contains(t, updates, "'"+status+"'", "job_updates не принимает статус %q", status)
	}

	finals := tableDDL(t, schema, "final_submissions")
	for _, status := range []string{
		models.FinalSubmissionStatusPendingReview,
		models.FinalSubmissionStatusApproved,
		models.FinalSubmissionStatusNeedsRevision,
		models.FinalSubmissionStatusDisputed,
	} {
		assert.Contains(t, finals, "'"+status+"'", "final_submissions не принимает статус %q", status)
	}
}

// Журнальные вставки не передают id: колонка обязана генерироваться базой.
func TestSchema_LedgerTablesGenerateIDs(t *testing.T) {
	schema := readSchema(t)

	for _, table := range []string{"wallet_transactions", "withdrawals"} {
		ddl := tableDDL(t, schema, table)
		assert.Contains(t, ddl, "id UUID PRIMARY KEY DEFAULT gen_random_uuid()",
			"таблица %s не генерирует id", table)
	}
	assert.Contains(t, schema, "CREATE EXTENSION IF NOT EXISTS pgcrypto")
}

// Колонки, которые код пишет через *string, должны допускать NULL.
func TestSchema_OptionalTextColumnsNullable(t *testing.T) {
	schema := readSchema(t)

	nullable := map[string]string{
		"job_applications":  "cover_letter TEXT,",
		"job_updates":       "feedback TEXT,",
		"final_submissions": "feedback TEXT,",
		"ratings":           "comment TEXT,",
		"disputes":          "resolution TEXT,",
		"profiles":          "bio TEXT,",
		"sessions":          "user_agent TEXT,",
	}
	for table, column := range nullable {
		ddl := tableDDL(t, schema, table)
		assert.Contains(t, ddl, column, "колонка в %s должна допускать NULL", table)
	}
}
