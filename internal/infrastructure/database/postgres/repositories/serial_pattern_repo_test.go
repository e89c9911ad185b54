package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/Serial-Intelligence/internal/testutil"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

var patternCols = []string{"id", "name", "pattern_type", "pattern_config", "product_id", "is_active", "created_at", "updated_at"}

type SerialPatternRepoTestSuite struct {
	suite.Suite
	mock   sqlmock.Sqlmock
	db     *sql.DB
	repo   serial.PatternRepository
	logger *testutil.MockLogger
}

func (s *SerialPatternRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)

	s.logger = testutil.NewMockLogger()
	conn := postgres.NewConnectionWithDB(s.db, s.logger)
	s.repo = NewPostgresSerialPatternRepo(conn, s.logger)
}

func (s *SerialPatternRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *SerialPatternRepoTestSuite) TestCreate_Success() {
	now := time.Now()
	p, err := serial.NewSerialPattern("Widget SN", serial.Regex(`SN-[0-9]{4}`), nil)
	s.Require().NoError(err)

	s.mock.ExpectQuery("INSERT INTO serial_patterns").
		WithArgs("Widget SN", "regex", `{"regex":"SN-[0-9]{4}"}`, nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now))

	s.NoError(s.repo.Create(context.Background(), p))
	s.Equal(int64(42), p.ID)
	s.Equal(now, p.CreatedAt)
}

func (s *SerialPatternRepoTestSuite) TestCreate_DuplicateName() {
	pid := int64(7)
	p, err := serial.NewSerialPattern("Widget SN", serial.PrefixSuffix(serial.PrefixSuffixConfig{Prefix: "SN-", Padding: 4, Start: 1, End: 9999}), &pid)
	s.Require().NoError(err)

	s.mock.ExpectQuery("INSERT INTO serial_patterns").
		WithArgs("Widget SN", "prefix_suffix", `{"prefix":"SN-","suffix":"","padding":4,"start":1,"end":9999}`, int64(7), true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_serial_patterns_scope_name"})

	err = s.repo.Create(context.Background(), p)
	s.True(errors.IsCode(err, errors.ErrCodePatternDuplicate))
	s.True(errors.IsConflict(err))
}

func (s *SerialPatternRepoTestSuite) TestCreate_DatabaseError() {
	p, err := serial.NewSerialPattern("X", serial.Regex(`X`), nil)
	s.Require().NoError(err)

	s.mock.ExpectQuery("INSERT INTO serial_patterns").WillReturnError(stderrors.New("conn reset"))

	err = s.repo.Create(context.Background(), p)
	s.True(errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func (s *SerialPatternRepoTestSuite) TestGetByID_Found() {
	now := time.Now()
	s.mock.ExpectQuery(`SELECT id, name, .* FROM serial_patterns WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(patternCols).
			AddRow(int64(3), "Widget", "prefix_suffix", []byte(`{"prefix":"SN-","suffix":"","padding":4,"start":1,"end":9999}`), int64(12), true, now, now))

	p, err := s.repo.GetByID(context.Background(), 3)
	s.Require().NoError(err)
	s.Equal(serial.PatternTypePrefixSuffix, p.Type)
	s.Require().NotNil(p.Config.PrefixSuffix)
	s.Equal("SN-", p.Config.PrefixSuffix.Prefix)
	s.Require().NotNil(p.ProductID)
	s.Equal(int64(12), *p.ProductID)
}

func (s *SerialPatternRepoTestSuite) TestGetByID_NotFound() {
	s.mock.ExpectQuery("SELECT .* FROM serial_patterns WHERE id").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.GetByID(context.Background(), 99)
	s.True(errors.IsCode(err, errors.ErrCodePatternNotFound))
}

func (s *SerialPatternRepoTestSuite) TestGetByID_InvalidStoredConfigIsKept() {
	now := time.Now()
	s.mock.ExpectQuery("SELECT .* FROM serial_patterns WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(patternCols).
			AddRow(int64(5), "Broken", "regex", []byte(`{"regex":"SN-[0-9"}`), nil, true, now, now))

	p, err := s.repo.GetByID(context.Background(), 5)
	s.Require().NoError(err)
	s.Nil(p.ProductID)
	s.Require().NotNil(p.Config.Regex)
	s.True(s.logger.HasMessage("warn", "Stored serial pattern has an invalid configuration"))
}

func (s *SerialPatternRepoTestSuite) TestUpdate_Success() {
	now := time.Now()
	p := &serial.SerialPattern{ID: 4, Name: "Renamed", Type: serial.PatternTypeRegex, Config: serial.Regex(`A[0-9]+`), IsActive: false}

	s.mock.ExpectQuery("UPDATE serial_patterns SET").
		WithArgs(int64(4), "Renamed", "regex", `{"regex":"A[0-9]+"}`, nil, false).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	s.NoError(s.repo.Update(context.Background(), p))
	s.Equal(now, p.UpdatedAt)
}

func (s *SerialPatternRepoTestSuite) TestUpdate_NotFound() {
	p := &serial.SerialPattern{ID: 4, Name: "X", Type: serial.PatternTypeRegex, Config: serial.Regex(`X`)}
	s.mock.ExpectQuery("UPDATE serial_patterns SET").WillReturnError(sql.ErrNoRows)

	s.True(errors.IsNotFound(s.repo.Update(context.Background(), p)))
}

func (s *SerialPatternRepoTestSuite) TestDelete() {
	s.mock.ExpectExec(`DELETE FROM serial_patterns WHERE id = \$1`).WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.repo.Delete(context.Background(), 1))

	s.mock.ExpectExec(`DELETE FROM serial_patterns`).WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.True(errors.IsCode(s.repo.Delete(context.Background(), 2), errors.ErrCodePatternNotFound))
}

func (s *SerialPatternRepoTestSuite) TestSetActive() {
	s.mock.ExpectExec(`UPDATE serial_patterns SET is_active = \$2`).WithArgs(int64(1), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.repo.SetActive(context.Background(), 1, false))

	s.mock.ExpectExec(`UPDATE serial_patterns SET is_active`).WithArgs(int64(8), true).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.True(errors.IsNotFound(s.repo.SetActive(context.Background(), 8, true)))
}

func (s *SerialPatternRepoTestSuite) TestList_FiltersAndPaging() {
	now := time.Now()
	pid := int64(12)

	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM serial_patterns WHERE product_id = \$1 AND is_active = \$2 AND pattern_type = \$3 AND name ILIKE \$4`).
		WithArgs(int64(12), true, "regex", `%wid\_get%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(31)))
	s.mock.ExpectQuery(`ORDER BY lower\(name\) ASC, id ASC LIMIT \$5 OFFSET \$6`).
		WithArgs(int64(12), true, "regex", `%wid\_get%`, 10, 20).
		WillReturnRows(sqlmock.NewRows(patternCols).
			AddRow(int64(1), "wid_get A", "regex", []byte(`{"regex":"A"}`), int64(12), true, now, now).
			AddRow(int64(2), "wid_get B", "regex", []byte(`{"regex":"B"}`), int64(12), true, now, now))

	got, total, err := s.repo.List(context.Background(),
		serial.PatternFilter{ProductID: &pid, ActiveOnly: true, Type: serial.PatternTypeRegex},
		serial.WithPagination(20, 10), serial.WithSortBy(serial.SortByName, true), serial.WithNameFilter("wid_get"))

	s.Require().NoError(err)
	s.Equal(int64(31), total)
	s.Len(got, 2)
	s.Equal("wid_get B", got[1].Name)
}

func (s *SerialPatternRepoTestSuite) TestList_NoFiltersDefaults() {
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM serial_patterns$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	s.mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(patternCols))

	got, total, err := s.repo.List(context.Background(), serial.PatternFilter{})
	s.Require().NoError(err)
	s.Zero(total)
	s.NotNil(got)
	s.Empty(got)
}

func (s *SerialPatternRepoTestSuite) TestListApplicable() {
	now := time.Now()
	pid := int64(12)

	s.mock.ExpectQuery(`WHERE is_active AND \(product_id IS NULL OR product_id = \$1\)`).
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows(patternCols).
			AddRow(int64(2), "scoped", "regex", []byte(`{"regex":"B"}`), int64(12), true, now, now).
			AddRow(int64(1), "global", "regex", []byte(`{"regex":"A"}`), nil, true, now, now))

	got, err := s.repo.ListApplicable(context.Background(), &pid)
	s.Require().NoError(err)
	s.Len(got, 2)

	s.mock.ExpectQuery(`WHERE is_active AND product_id IS NULL`).
		WillReturnRows(sqlmock.NewRows(patternCols).
			AddRow(int64(1), "global", "regex", []byte(`{"regex":"A"}`), nil, true, now, now))

	got, err = s.repo.ListApplicable(context.Background(), nil)
	s.Require().NoError(err)
	s.Len(got, 1)
	s.True(got[0].IsGlobal())
}

func (s *SerialPatternRepoTestSuite) TestListApplicable_QueryError() {
	s.mock.ExpectQuery("FROM serial_patterns").WillReturnError(stderrors.New("timeout"))

	_, err := s.repo.ListApplicable(context.Background(), nil)
	s.True(errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestSerialPatternRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SerialPatternRepoTestSuite))
}

//Personal.AI order the ending
