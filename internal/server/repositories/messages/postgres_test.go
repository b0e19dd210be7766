package messages

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/multichat/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQuery = `(?s)^\s*INSERT\s+INTO\s+messages\s*\(user_id,\s*model_tag,\s*role,\s*content\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at\s*$`
	listQuery   = `(?s)^\s*SELECT\s+id,\s*user_id,\s*model_tag,\s*role,\s*content,\s*created_at\s+FROM\s+messages\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+ASC,\s*id\s+ASC\s*$`
	deleteQuery = `(?s)^\s*DELETE\s+FROM\s+messages\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s*$`

	messageID = "7d5e7a0a-5d0e-4d52-9e4c-0c6a1a3b9f10"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(insertQuery).
		WithArgs("u1", "gpt-4o-mini", "user", "hi").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(messageID, now))

	got, err := repo.Create(context.Background(), &models.Message{
		UserID: "u1", ModelTag: "gpt-4o-mini", Role: models.RoleUser, Content: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, messageID, got.ID)
	assert.True(t, got.CreatedAt.Equal(now))
	assert.Equal(t, models.RoleUser, got.Role)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WithArgs("u1", "echo", "assistant", "x").
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Message{
		UserID: "u1", ModelTag: "echo", Role: models.RoleAssistant, Content: "x",
	})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t0 := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "model_tag", "role", "content", "created_at"}).
		AddRow("m1", "u1", "echo", "user", "hello", t0).
		AddRow("m2", "u1", "echo", "assistant", `You said: "hello"`, t0.Add(time.Millisecond))
	mock.ExpectQuery(listQuery).WithArgs("u1").WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.RoleUser, got[0].Role)
	assert.Equal(t, models.RoleAssistant, got[1].Role)
	assert.Equal(t, `You said: "hello"`, got[1].Content)
}

func TestListByUser_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQuery).WithArgs("u1").WillReturnError(errors.New("db err"))

	_, err := repo.ListByUser(context.Background(), "u1")
	require.Error(t, err)
}

func TestDelete_FiltersByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQuery).
		WithArgs(messageID, "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), messageID, "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_MalformedIDIsNoop(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	require.NoError(t, repo.Delete(context.Background(), "not-a-uuid", "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQuery).
		WithArgs(messageID, "u1").
		WillReturnError(errors.New("db err"))

	err := repo.Delete(context.Background(), messageID, "u1")
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db err`), err.Error())
}
