package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"go-storefront/apperrors"
	"go-storefront/logger"
	"go-storefront/repository/memory"
	"go-storefront/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryChargeSettings(t *testing.T) {
	svc := NewSettingsService(memory.NewStore().Settings)
	ctx := context.Background()

	charge, err := svc.DeliveryCharge(ctx)
	require.NoError(t, err)
	assert.Zero(t, charge)

	_, err = svc.SetDeliveryCharge(ctx, -1)
	assertCode(t, err, apperrors.CodeValidation)

	charge, err = svc.SetDeliveryCharge(ctx, 120)
	require.NoError(t, err)
	assert.Equal(t, 120.0, charge)

	charge, err = svc.DeliveryCharge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120.0, charge)
}

func newUserService(t *testing.T) (*UserService, *recordingMailer, *TaskRunner) {
	t.Helper()
	store := memory.NewStore()
	mailer := &recordingMailer{}
	runner := NewTaskRunner(logger.Discard(), time.Second)
	t.Cleanup(runner.Wait)
	notifier := NewNotifier(mailer, store.Admins, "BLYNK-", logger.Discard())
	return NewUserService(store.Users, notifier, runner, logger.Discard()), mailer, runner
}

func TestSaveUserIsInsertIfAbsent(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	created, err := svc.SaveUser(ctx, "Asha", "Asha@Example.com ")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.SaveUser(ctx, "Asha K", "asha@example.com")
	require.NoError(t, err)
	assert.False(t, created)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Asha", users[0].Name)

	_, err = svc.SaveUser(ctx, "Nobody", "")
	assertCode(t, err, apperrors.CodeValidation)
}

func TestSendBulkEmail(t *testing.T) {
	svc, mailer, runner := newUserService(t)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := svc.SaveUser(ctx, "", email)
		require.NoError(t, err)
	}

	n, err := svc.SendBulkEmail(ctx, BulkEmailInput{Subject: "Sale", Message: "<b>50%</b> off", SendToAll: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.SendBulkEmail(ctx, BulkEmailInput{Subject: "Hi", Message: "there",
		Emails: []string{"c@example.com", "c@example.com", " "}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	runner.Wait()

	var to []string
	for _, msg := range mailer.messages() {
		to = append(to, msg.To)
	}
	sort.Strings(to)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, to)
	assert.NotContains(t, mailer.to("a@example.com")[0].HTML, "<b>50%</b>")

	_, err = svc.SendBulkEmail(ctx, BulkEmailInput{Subject: "Hi", Message: "there"})
	assertCode(t, err, apperrors.CodeValidation)
	_, err = svc.SendBulkEmail(ctx, BulkEmailInput{Subject: "", Message: "there", SendToAll: true})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestAdminLogin(t *testing.T) {
	store := memory.NewStore()
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	svc := NewAdminService(store.Admins, issuer, logger.Discard())
	ctx := context.Background()

	require.NoError(t, svc.EnsureSeedAdmin(ctx, "Admin@Example.com", "hunter22"))
	require.NoError(t, svc.EnsureSeedAdmin(ctx, "admin@example.com", "other"))

	token, err := svc.Login(ctx, "admin@example.com", "hunter22")
	require.NoError(t, err)
	claims, err := issuer.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, utils.RoleAdmin, claims.Role)

	_, err = svc.Login(ctx, "admin@example.com", "other")
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.Login(ctx, "ghost@example.com", "hunter22")
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.Login(ctx, "", "")
	assertCode(t, err, apperrors.CodeValidation)
}
