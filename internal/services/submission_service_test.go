package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"greendrake/productenquiry/internal/auth"
	"greendrake/productenquiry/internal/captcha"
	"greendrake/productenquiry/internal/models"
	"greendrake/productenquiry/internal/session"
	"greendrake/productenquiry/internal/validation"
)

type submissionFixture struct {
	svc       ISubmissionService
	lists     IEnquiryListService
	captchas  captcha.IChallenger
	nonces    auth.INonceManager
	enquiries *MockEnquiryService
	queue     *MockNotificationQueue
	sid       string
}

func newSubmissionFixture(t *testing.T, settings models.Settings) *submissionFixture {
	t.Helper()
	store := session.NewMemoryStore()
	f := &submissionFixture{
		lists:     NewEnquiryListService(store),
		captchas:  captcha.NewChallenger(store, time.Hour),
		nonces:    auth.NewNonceManager("test-secret", time.Hour),
		enquiries: new(MockEnquiryService),
		queue:     new(MockNotificationQueue),
		sid:       session.NewID(),
	}
	f.svc = NewSubmissionService(
		f.nonces, f.lists, f.captchas, staticSettings(settings),
		NewRecipientResolver(stubAuthors{}, testAdminEmail),
		f.enquiries, f.queue,
	)
	return f
}

func (f *submissionFixture) validRequest(t *testing.T) SubmissionRequest {
	t.Helper()
	nonce, err := f.nonces.Generate(f.sid, auth.AjaxNonceAction)
	require.NoError(t, err)
	return SubmissionRequest{
		SessionID: f.sid,
		Nonce:     nonce,
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john.doe@example.com",
		Phone:     "(98) 899-88998",
		Comment:   "Need these by Friday",
	}
}

func (f *submissionFixture) answerCaptcha(t *testing.T, req *SubmissionRequest) {
	t.Helper()
	ch, err := f.captchas.Generate(context.Background(), f.sid)
	require.NoError(t, err)
	req.CaptchaAnswer = strconv.Itoa(ch.A + ch.B)
}

func TestSubmit_AcceptedStoresSnapshotAndClearsList(t *testing.T) {
	f := newSubmissionFixture(t, models.Settings{SendEmailToAdmin: true, EmailSubject: "Product Enquiry", CaptchaEnabled: true})
	ctx := context.Background()
	require.NoError(t, f.lists.Upsert(ctx, f.sid, 101, 2))

	req := f.validRequest(t)
	req.SendCustomerCopy = true
	f.answerCaptcha(t, &req)

	var stored *models.EnquiryRecord
	f.enquiries.On("Create", mock.Anything, mock.AnythingOfType("*models.EnquiryRecord")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.EnquiryRecord) }).
		Return(&models.EnquiryRecord{ID: 17}, nil).Once()
	f.enquiries.On("SetTitle", mock.Anything, int64(17), "#17 @ John Doe").Return(nil).Once()
	f.queue.On("EnqueueEnquiryNotification", mock.Anything, EnquiryNotification{
		EnquiryID:  17,
		Recipients: []string{"john.doe@example.com", testAdminEmail},
		Subject:    "Product Enquiry",
	}).Return(nil).Once()

	res, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, SubmissionAccepted, res.State)
	assert.Equal(t, "#17 @ John Doe", res.Record.Title)

	require.NotNil(t, stored)
	assert.Regexp(t, `^Enquiry\d+$`, stored.Title)
	assert.Equal(t, models.EnquiryList{101: {Quantity: 2, Remarks: ""}}, stored.List())
	assert.Equal(t, "Need these by Friday", stored.Excerpt)
	assert.Equal(t, models.Enquirer{FirstName: "John", LastName: "Doe", Email: "john.doe@example.com", Phone: "(98) 899-88998"}, stored.Enquirer)

	list, err := f.lists.Get(ctx, f.sid)
	require.NoError(t, err)
	assert.Empty(t, list)

	ok, err := f.captchas.Verify(ctx, f.sid, req.CaptchaAnswer)
	require.NoError(t, err)
	assert.False(t, ok, "captcha is single use")

	f.enquiries.AssertExpectations(t)
	f.queue.AssertExpectations(t)
}

func TestSubmit_InitialTitleUsesTimestamp(t *testing.T) {
	f := newSubmissionFixture(t, models.Settings{})
	f.svc.(*submissionService).now = func() time.Time { return time.Unix(1700000000, 0) }

	f.enquiries.On("Create", mock.Anything, mock.MatchedBy(func(rec *models.EnquiryRecord) bool {
		return rec.Title == "Enquiry1700000000"
	})).Return(&models.EnquiryRecord{ID: 1}, nil).Once()
	f.enquiries.On("SetTitle", mock.Anything, int64(1), mock.Anything).Return(nil).Once()
	f.queue.On("EnqueueEnquiryNotification", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Submit(context.Background(), f.validRequest(t))
	require.NoError(t, err)
	assert.Equal(t, SubmissionAccepted, res.State)
	assert.Equal(t, []string{testAdminEmail}, res.Recipients)
	f.enquiries.AssertExpectations(t)
}

func TestSubmit_RejectedLeavesListUntouched(t *testing.T) {
	f := newSubmissionFixture(t, models.Settings{})
	ctx := context.Background()
	require.NoError(t, f.lists.Upsert(ctx, f.sid, 101, 2))

	req := f.validRequest(t)
	req.Email = "not-an-email"
	req.Phone = "12345"

	res, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, SubmissionRejected, res.State)
	assert.Equal(t, []string{validation.MsgEmailInvalid, validation.MsgPhoneInvalid}, res.Validation.Errors)

	list, err := f.lists.Get(ctx, f.sid)
	require.NoError(t, err)
	assert.Equal(t, models.EnquiryList{101: {Quantity: 2}}, list)
	f.enquiries.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_WrongCaptchaIsAValidationError(t *testing.T) {
	f := newSubmissionFixture(t, models.Settings{CaptchaEnabled: true})
	req := f.validRequest(t)
	f.answerCaptcha(t, &req)
	n, _ := strconv.Atoi(req.CaptchaAnswer)
	req.CaptchaAnswer = strconv.Itoa(n + 1)
	req.FirstName = ""

	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SubmissionRejected, res.State)
	assert.Equal(t, []string{validation.MsgFirstNameInvalid, validation.MsgCaptchaInvalid}, res.Validation.Errors)
}

func TestSubmit_BadNonceIsSecurityRejection(t *testing.T) {
	f := newSubmissionFixture(t, models.Settings{})
	ctx := context.Background()
	require.NoError(t, f.lists.Upsert(ctx, f.sid, 5, 1))

	req := f.validRequest(t)
	req.SessionID = session.NewID()
	res, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, SubmissionSecurityRejected, res.State)

	req = f.validRequest(t)
	req.Nonce = ""
	res, err = f.svc.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, SubmissionSecurityRejected, res.State)

	f.enquiries.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_NotIdempotent(t *testing.T) {
	f := newSubmissionFixture(t, models.Settings{})
	ctx := context.Background()
	require.NoError(t, f.lists.Upsert(ctx, f.sid, 101, 2))

	f.enquiries.On("Create", mock.Anything, mock.Anything).Return(&models.EnquiryRecord{ID: 1}, nil).Once()
	f.enquiries.On("Create", mock.Anything, mock.MatchedBy(func(rec *models.EnquiryRecord) bool {
		return len(rec.Items) == 0
	})).Return(&models.EnquiryRecord{ID: 2}, nil).Once()
	f.enquiries.On("SetTitle", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.queue.On("EnqueueEnquiryNotification", mock.Anything, mock.Anything).Return(nil)

	req := f.validRequest(t)
	for i := 0; i < 2; i++ {
		res, err := f.svc.Submit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, SubmissionAccepted, res.State)
	}
	f.enquiries.AssertNumberOfCalls(t, "Create", 2)
}

func TestSubmit_EnqueueFailureIsNotSurfaced(t *testing.T) {
	f := newSubmissionFixture(t, models.Settings{})
	f.enquiries.On("Create", mock.Anything, mock.Anything).Return(&models.EnquiryRecord{ID: 3}, nil)
	f.enquiries.On("SetTitle", mock.Anything, int64(3), mock.Anything).Return(nil)
	f.queue.On("EnqueueEnquiryNotification", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	res, err := f.svc.Submit(context.Background(), f.validRequest(t))
	require.NoError(t, err)
	assert.Equal(t, SubmissionAccepted, res.State)
}

func TestSubmit_StorageFailureKeepsList(t *testing.T) {
	f := newSubmissionFixture(t, models.Settings{})
	ctx := context.Background()
	require.NoError(t, f.lists.Upsert(ctx, f.sid, 8, 1))
	f.enquiries.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("mongo down"))

	_, err := f.svc.Submit(ctx, f.validRequest(t))
	require.Error(t, err)

	list, err := f.lists.Get(ctx, f.sid)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSubmit_TitleFailureStillClearsList(t *testing.T) {
	f := newSubmissionFixture(t, models.Settings{})
	ctx := context.Background()
	require.NoError(t, f.lists.Upsert(ctx, f.sid, 8, 1))
	f.enquiries.On("Create", mock.Anything, mock.Anything).Return(&models.EnquiryRecord{ID: 4}, nil).Once()
	f.enquiries.On("SetTitle", mock.Anything, int64(4), "#4 @ John Doe").Return(errors.New("mongo down")).Once()
	f.queue.On("EnqueueEnquiryNotification", mock.Anything, mock.MatchedBy(func(n EnquiryNotification) bool {
		return n.EnquiryID == 4
	})).Return(nil).Once()

	res, err := f.svc.Submit(ctx, f.validRequest(t))
	require.NoError(t, err)
	assert.Equal(t, SubmissionAccepted, res.State)

	list, err := f.lists.Get(ctx, f.sid)
	require.NoError(t, err)
	assert.Empty(t, list)
	f.enquiries.AssertExpectations(t)
	f.queue.AssertExpectations(t)
}
