package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"faqbot/internal/domain"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	queryOut     *dynamodb.QueryOutput
	queryErr     error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
	lastQueryIn  *dynamodb.QueryInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	return f.queryOut, f.queryErr
}

func mustNewArchive(t *testing.T, db *fakeDynamo) *Archive {
	t.Helper()
	a, err := New(db, "test-table")
	require.NoError(t, err)
	return a
}

func sampleSubmission() domain.InquirySubmission {
	return domain.InquirySubmission{
		InquiryID:      "inq_01ARZ3NDEKTSV4RRFFQ69G5FAV",
		ConversationID: "conv-1",
		Name:           "山田太郎",
		Company:        "株式会社サンプル",
		Email:          "taro@example.com",
		Message:        "資料を送ってください。",
		SubmittedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPutInquiry_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	a := mustNewArchive(t, db)

	err := a.PutInquiry(context.Background(), sampleSubmission())
	require.NoError(t, err)
	require.NotNil(t, db.lastPutInput)
	require.Equal(t, "attribute_not_exists(PK)", *db.lastPutInput.ConditionExpression)
	require.Equal(t, "INQUIRY#inq_01ARZ3NDEKTSV4RRFFQ69G5FAV",
		db.lastPutInput.Item["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "taro@example.com",
		db.lastPutInput.Item["email"].(*types.AttributeValueMemberS).Value)
}

func TestPutInquiry_MissingID(t *testing.T) {
	a := mustNewArchive(t, &fakeDynamo{})
	err := a.PutInquiry(context.Background(), domain.InquirySubmission{ConversationID: "conv-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestPutInquiry_DynamoError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("ConditionalCheckFailedException")}
	a := mustNewArchive(t, db)
	err := a.PutInquiry(context.Background(), sampleSubmission())
	require.Error(t, err)
	require.Contains(t, err.Error(), "PutInquiry")
}

func TestGetInquiry_HappyPath(t *testing.T) {
	sub := sampleSubmission()
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: inquiryItem(sub)}}
	a := mustNewArchive(t, db)

	got, ok, err := a.GetInquiry(context.Background(), sub.InquiryID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sub, got)
	require.NotNil(t, db.lastGetInput)
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestGetInquiry_NotFound(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	a := mustNewArchive(t, db)
	_, ok, err := a.GetInquiry(context.Background(), "inq_missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetInquiry_GetItemError(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("boom")}
	a := mustNewArchive(t, db)
	_, _, err := a.GetInquiry(context.Background(), "inq_1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "GetInquiry")
}

func TestPutFeedback_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	a := mustNewArchive(t, db)

	err := a.PutFeedback(context.Background(), domain.FeedbackRecord{
		ConversationID: "conv-1",
		FAQID:          "faq_3",
		Rating:         domain.RatingNegative,
		Comment:        "答えが違う",
		Timestamp:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, "CONV#conv-1", db.lastPutInput.Item["PK"].(*types.AttributeValueMemberS).Value)
	require.Contains(t, db.lastPutInput.Item["SK"].(*types.AttributeValueMemberS).Value, skPrefixFB)
	require.Nil(t, db.lastPutInput.ConditionExpression, "feedback is append-only, never conditioned")
}

func TestPutFeedback_MissingConversationID(t *testing.T) {
	a := mustNewArchive(t, &fakeDynamo{})
	err := a.PutFeedback(context.Background(), domain.FeedbackRecord{Rating: domain.RatingPositive})
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestPutFeedback_DynamoError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")}
	a := mustNewArchive(t, db)
	err := a.PutFeedback(context.Background(), domain.FeedbackRecord{ConversationID: "conv-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "PutFeedback")
}

func TestFeedbackByConversation_HappyPath(t *testing.T) {
	older := domain.FeedbackRecord{
		ConversationID: "conv-1",
		Rating:         domain.RatingPositive,
		Timestamp:      time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
	}
	newer := domain.FeedbackRecord{
		ConversationID: "conv-1",
		Rating:         domain.RatingNegative,
		Comment:        "わかりにくい",
		Timestamp:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{feedbackItem(older), feedbackItem(newer)},
	}}
	a := mustNewArchive(t, db)

	recs, err := a.FeedbackByConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, older, recs[0])
	require.Equal(t, newer, recs[1])
	require.Equal(t, "PK = :pk AND begins_with(SK, :prefix)", *db.lastQueryIn.KeyConditionExpression)
	require.True(t, *db.lastQueryIn.ScanIndexForward)
}

func TestFeedbackByConversation_Empty(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	a := mustNewArchive(t, db)
	recs, err := a.FeedbackByConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestFeedbackByConversation_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("ResourceNotFoundException")}
	a := mustNewArchive(t, db)
	_, err := a.FeedbackByConversation(context.Background(), "conv-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "FeedbackByConversation")
}

func TestFeedbackByConversation_MalformedItem(t *testing.T) {
	item := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "CONV#conv-1"},
		"SK": &types.AttributeValueMemberS{Value: "FB#ts"},
	}
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}}
	a := mustNewArchive(t, db)
	_, err := a.FeedbackByConversation(context.Background(), "conv-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "conversationId")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil, "test-table")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNew_EmptyTableName(t *testing.T) {
	_, err := New(&fakeDynamo{}, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}
