package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/service/allocation"
	"github.com/ignite/outreach-engine/internal/service/campaign"
	"github.com/ignite/outreach-engine/internal/service/delivery"
	"github.com/ignite/outreach-engine/internal/service/ingest"
	"github.com/ignite/outreach-engine/internal/service/suppression"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var (
	campaignCols  = []string{"id", "account_id", "sender_id", "name", "template_html", "is_active", "created_at", "categories"}
	recipientCols = []string{"id", "name", "email", "exposure_count", "created_at", "categories"}
	senderCols    = []string{"id", "account_id", "email", "refresh_token", "is_active", "created_at"}
	created       = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

func TestAllocationSource_ActiveCampaigns(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`FROM campaigns c\s+LEFT JOIN campaign_categories`).
		WillReturnRows(sqlmock.NewRows(campaignCols).
			AddRow("F1", "A1", "S1", "Spring", "<p>@COMPANY_NAME</p>", true, created, []byte("{62.01,70.22}")).
			AddRow("F2", "A1", "S2", "Autumn", "", true, created, []byte("{}")))

	got, err := NewAllocationSource(db).ActiveCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"62.01", "70.22"}, got[0].Categories)
	assert.True(t, got[0].Eligible())
	assert.Empty(t, got[1].Categories)
}

func TestAllocationSource_EligibleRecipients(t *testing.T) {
	db, mock := setupTestDB(t)
	since := created.AddDate(0, 0, -7)
	mock.ExpectQuery(`WHERE r.exposure_count < \$1\s+AND r.created_at >= \$2`).
		WithArgs(2, since).
		WillReturnRows(sqlmock.NewRows(recipientCols).
			AddRow("R1", "Smith", "office@smith.example", 1, created, "{62.01}"))

	got, err := NewAllocationSource(db).EligibleRecipients(context.Background(),
		allocation.RecipientQuery{MaxExposure: 2, CreatedSince: since})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ExposureCount)
	assert.Equal(t, []string{"62.01"}, got[0].Categories)
}

func TestAllocationSource_ActiveSenders(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`FROM sender_identities\s+WHERE account_id = \$1 AND is_active = true`).
		WithArgs("A1").
		WillReturnRows(sqlmock.NewRows(senderCols).
			AddRow("S1", "A1", "anna@acme.example", "1//r", true, created))

	got, err := NewAllocationSource(db).ActiveSenders(context.Background(), "A1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1//r", got[0].RefreshToken)
}

func TestAllocationSource_Pairs(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT sender_id, recipient_id FROM suppressions`).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id", "recipient_id"}).AddRow("S1", "R1").AddRow("S2", "R1"))
	mock.ExpectQuery(`SELECT sender_id, recipient_id FROM first_contacts`).
		WillReturnError(errors.New("relation does not exist"))

	src := NewAllocationSource(db)
	sup, err := src.SuppressedPairs(context.Background())
	require.NoError(t, err)
	assert.Len(t, sup, 2)
	assert.True(t, sup.Has("S2", "R1"))

	_, err = src.ContactedPairs(context.Background())
	assert.ErrorContains(t, err, "relation does not exist")
}

func TestContactRepo_InsertFirstContact(t *testing.T) {
	db, mock := setupTestDB(t)
	q := regexp.QuoteMeta(`INSERT INTO first_contacts (sender_id, recipient_id)`)
	mock.ExpectExec(q).WithArgs("S1", "R1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("S1", "R1").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewContactRepo(db)
	inserted, err := repo.InsertFirstContact(context.Background(), "S1", "R1")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertFirstContact(context.Background(), "S1", "R1")
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate pair must not bump exposure")
}

func TestSuppressionRepo_Suppress(t *testing.T) {
	db, mock := setupTestDB(t)
	q := `INSERT INTO suppressions .* ON CONFLICT \(sender_id, recipient_id\) DO NOTHING`
	mock.ExpectExec(q).WithArgs(sqlmock.AnyArg(), "S1", "R1", "unsubscribe").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("fixed-id", "S1", "R1", "manual").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewSuppressionRepo(db)
	s := &domain.Suppression{SenderID: "S1", RecipientID: "R1", Reason: domain.ReasonUnsubscribe}
	added, err := repo.Suppress(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, added)
	assert.NotEmpty(t, s.ID)

	added, err = repo.Suppress(context.Background(), &domain.Suppression{ID: "fixed-id", SenderID: "S1", RecipientID: "R1", Reason: domain.ReasonManual})
	require.NoError(t, err)
	assert.False(t, added)
}

func TestSuppressionRepo_List(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM suppressions`).WithArgs("S1", "").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT id, sender_id, recipient_id, reason, created_at`).WithArgs("S1", "", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "recipient_id", "reason", "created_at"}).
			AddRow("X1", "S1", "R1", "complaint", created))

	items, total, err := NewSuppressionRepo(db).List(context.Background(), suppression.ListFilter{SenderID: "S1", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ReasonComplaint, items[0].Reason)
}

func TestDeliveryRepo_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`FROM sender_identities WHERE id = \$1`).WithArgs("S404").
		WillReturnRows(sqlmock.NewRows(senderCols))
	mock.ExpectExec(`UPDATE sender_identities`).WithArgs("S404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewDeliveryRepo(db)
	_, err := repo.Sender(context.Background(), "S404")
	assert.ErrorIs(t, err, delivery.ErrNotFound)
	assert.ErrorIs(t, repo.DeactivateSender(context.Background(), "S404"), delivery.ErrNotFound)
}

func TestDeliveryRepo_Campaign(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`WHERE c.id = \$1\s+GROUP BY c.id`).WithArgs("F1").
		WillReturnRows(sqlmock.NewRows(campaignCols).
			AddRow("F1", "A1", "S1", "Spring", "<p>x</p>", true, created, "{62.01}"))

	c, err := NewDeliveryRepo(db).Campaign(context.Background(), "F1")
	require.NoError(t, err)
	assert.Equal(t, "Spring", c.Name)
	assert.Equal(t, "<p>x</p>", c.TemplateHTML)
}

func TestDeliveryRepo_EmailLogs(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(`INSERT INTO email_logs`).
		WithArgs("L1", "F1", "S1", "R1", "tok", "pending", created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE email_logs`).
		WithArgs("L1", "sent", "gmail-1", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDeliveryRepo(db)
	require.NoError(t, repo.CreateEmailLog(context.Background(), &domain.EmailLog{
		ID: "L1", CampaignID: "F1", SenderID: "S1", RecipientID: "R1",
		UnsubscribeToken: "tok", Status: domain.EmailPending, CreatedAt: created,
	}))
	require.NoError(t, repo.UpdateEmailLog(context.Background(), "L1", domain.EmailSent, "gmail-1", ""))
}

func TestCampaignRepo_CreateTagsCategories(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO campaigns`).
		WithArgs("F1", "A1", "", "Spring", "", false, created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO categories`).WithArgs("62.01").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO campaign_categories`).WithArgs("F1", "62.01").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewCampaignRepo(db).Create(context.Background(), &domain.Campaign{
		ID: "F1", AccountID: "A1", Name: "Spring", Categories: []string{"62.01"}, CreatedAt: created,
	})
	require.NoError(t, err)
}

func TestCampaignRepo_SetActiveNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(`UPDATE campaigns SET is_active`).WithArgs("F404", "A1", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewCampaignRepo(db).SetActive(context.Background(), "A1", "F404", true)
	assert.ErrorIs(t, err, campaign.ErrNotFound)
}

func TestCampaignRepo_ListActive(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM campaigns c WHERE c.account_id = \$1 AND c.is_active = \$2`).
		WithArgs("A1", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`LIMIT \$3 OFFSET \$4`).
		WithArgs("A1", true, 50, 0).
		WillReturnRows(sqlmock.NewRows(campaignCols).
			AddRow("F1", "A1", "S1", "Spring", "", true, created, "{}"))

	active := true
	items, total, err := NewCampaignRepo(db).List(context.Background(), "A1", campaign.ListFilter{Active: &active})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)
}

func TestMigrate(t *testing.T) {
	db, mock := setupTestDB(t)
	migrations, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001_init", migrations[0].Version)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	for i, m := range migrations {
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM schema_migrations`).WithArgs(m.Version).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(i > 0))
		if i > 0 {
			continue
		}
		mock.ExpectBegin()
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS accounts`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs(m.Version).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init"}, applied)
}

func TestRecipientRepo_UpsertRecipients(t *testing.T) {
	db, mock := setupTestDB(t)
	registered := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	companies := []domain.RegistryCompany{
		{
			RegistryNumber: "0000000123",
			Name:           "ACME SP. Z O.O.",
			Email:          "biuro@acme.pl",
			RegisteredAt:   registered,
			Categories:     []domain.Category{{Code: "62.01.Z", Name: "Software"}},
			Raw:            []byte(`{"naglowekA":{}}`),
		},
		{RegistryNumber: "0000000456", Name: "Broken", RegisteredAt: registered},
		{RegistryNumber: "0000000789", Name: "No Categories", RegisteredAt: registered},
	}
	upsert := `INSERT INTO recipients .* ON CONFLICT \(registry_number\) DO UPDATE`

	mock.ExpectBegin()

	mock.ExpectExec(`SAVEPOINT recipient_upsert`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(upsert).
		WithArgs(sqlmock.AnyArg(), "ACME SP. Z O.O.", "biuro@acme.pl", "0000000123", registered, `{"naglowekA":{}}`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("R1"))
	mock.ExpectExec(`INSERT INTO categories .* ON CONFLICT \(code\)`).
		WithArgs("{\"62.01.Z\"}", "{\"Software\"}").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM recipient_categories`).
		WithArgs("R1", "{\"62.01.Z\"}").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO recipient_categories`).
		WithArgs("R1", "{\"62.01.Z\"}").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`RELEASE SAVEPOINT recipient_upsert`).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec(`SAVEPOINT recipient_upsert`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(upsert).
		WithArgs(sqlmock.AnyArg(), "Broken", "", "0000000456", registered, nil).
		WillReturnError(errors.New("value too long"))
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT recipient_upsert`).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec(`SAVEPOINT recipient_upsert`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(upsert).
		WithArgs(sqlmock.AnyArg(), "No Categories", "", "0000000789", registered, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("R3"))
	mock.ExpectExec(`RELEASE SAVEPOINT recipient_upsert`).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectCommit()

	res, err := NewRecipientRepo(db).UpsertRecipients(context.Background(), companies)
	require.NoError(t, err)
	assert.Equal(t, ingest.UpsertResult{Saved: 2, Failed: 1}, res)
}

func TestRecipientRepo_UpsertRecipientsEmpty(t *testing.T) {
	db, _ := setupTestDB(t)
	res, err := NewRecipientRepo(db).UpsertRecipients(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, ingest.UpsertResult{}, res)
}
