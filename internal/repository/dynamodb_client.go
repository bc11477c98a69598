// Package repository persists accepted inquiries and answer feedback to
// a single DynamoDB table, keyed so inquiries are addressable by id and
// feedback is scannable per conversation.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"faqbot/internal/domain"
)

const (
	skRecord     = "REC#"
	skPrefixFB   = "FB#"
	retentionInq = 365 * 24 * time.Hour
	retentionFB  = 90 * 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Archive.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Archive wraps the DynamoDB table holding inquiries and feedback.
type Archive struct {
	api       dynamodbAPI
	tableName string
}

// New creates an Archive over the given table.
func New(api dynamodbAPI, tableName string) (*Archive, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Archive{api: api, tableName: tableName}, nil
}

func inquiryPK(inquiryID string) string { return "INQUIRY#" + inquiryID }

func convPK(conversationID string) string { return "CONV#" + conversationID }

func feedbackSK(ts time.Time) string {
	return skPrefixFB + ts.UTC().Format(time.RFC3339Nano)
}

// PutInquiry writes the submission. The condition rejects a second
// write under the same inquiry id, so a retried request cannot
// silently overwrite the original record.
func (a *Archive) PutInquiry(ctx context.Context, sub domain.InquirySubmission) error {
	if sub.InquiryID == "" {
		return errors.New("repository: PutInquiry: inquiry id is required")
	}

	_, err := a.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(a.tableName),
		Item:                inquiryItem(sub),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: PutInquiry: %w", err)
	}
	return nil
}

// GetInquiry fetches one submission by id. The boolean is false when no
// record exists.
func (a *Archive) GetInquiry(ctx context.Context, inquiryID string) (domain.InquirySubmission, bool, error) {
	out, err := a.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(a.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: inquiryPK(inquiryID)},
			"SK": &types.AttributeValueMemberS{Value: skRecord},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.InquirySubmission{}, false, fmt.Errorf("repository: GetInquiry: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.InquirySubmission{}, false, nil
	}
	sub, err := itemToInquiry(out.Item)
	if err != nil {
		return domain.InquirySubmission{}, false, fmt.Errorf("repository: GetInquiry decode: %w", err)
	}
	return sub, true, nil
}

// PutFeedback appends one feedback record. Records are never updated;
// each rating from a conversation lands under its own timestamped key.
func (a *Archive) PutFeedback(ctx context.Context, rec domain.FeedbackRecord) error {
	if rec.ConversationID == "" {
		return errors.New("repository: PutFeedback: conversation id is required")
	}

	_, err := a.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      feedbackItem(rec),
	})
	if err != nil {
		return fmt.Errorf("repository: PutFeedback: %w", err)
	}
	return nil
}

// FeedbackByConversation returns a conversation's feedback in
// submission order.
func (a *Archive) FeedbackByConversation(ctx context.Context, conversationID string) ([]domain.FeedbackRecord, error) {
	out, err := a.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(a.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: convPK(conversationID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixFB},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: FeedbackByConversation query: %w", err)
	}

	recs := make([]domain.FeedbackRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := itemToFeedback(item)
		if err != nil {
			return nil, fmt.Errorf("repository: FeedbackByConversation decode: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func inquiryItem(sub domain.InquirySubmission) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: inquiryPK(sub.InquiryID)},
		"SK":             &types.AttributeValueMemberS{Value: skRecord},
		"inquiryId":      &types.AttributeValueMemberS{Value: sub.InquiryID},
		"conversationId": &types.AttributeValueMemberS{Value: sub.ConversationID},
		"name":           &types.AttributeValueMemberS{Value: sub.Name},
		"company":        &types.AttributeValueMemberS{Value: sub.Company},
		"email":          &types.AttributeValueMemberS{Value: sub.Email},
		"message":        &types.AttributeValueMemberS{Value: sub.Message},
		"submittedAt":    &types.AttributeValueMemberS{Value: sub.SubmittedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":            &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", sub.SubmittedAt.Add(retentionInq).Unix())},
	}
}

func feedbackItem(rec domain.FeedbackRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: convPK(rec.ConversationID)},
		"SK":             &types.AttributeValueMemberS{Value: feedbackSK(rec.Timestamp)},
		"conversationId": &types.AttributeValueMemberS{Value: rec.ConversationID},
		"faqId":          &types.AttributeValueMemberS{Value: rec.FAQID},
		"query":          &types.AttributeValueMemberS{Value: rec.Query},
		"rating":         &types.AttributeValueMemberS{Value: string(rec.Rating)},
		"comment":        &types.AttributeValueMemberS{Value: rec.Comment},
		"ttl":            &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.Timestamp.Add(retentionFB).Unix())},
	}
}

func itemToInquiry(item map[string]types.AttributeValue) (domain.InquirySubmission, error) {
	id, err := strAttr(item, "inquiryId")
	if err != nil {
		return domain.InquirySubmission{}, err
	}
	convID, err := strAttr(item, "conversationId")
	if err != nil {
		return domain.InquirySubmission{}, err
	}
	name, _ := strAttr(item, "name")
	company, _ := strAttr(item, "company")
	email, _ := strAttr(item, "email")
	message, _ := strAttr(item, "message")

	sub := domain.InquirySubmission{
		InquiryID:      id,
		ConversationID: convID,
		Name:           name,
		Company:        company,
		Email:          email,
		Message:        message,
	}
	if raw, err := strAttr(item, "submittedAt"); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			sub.SubmittedAt = ts
		}
	}
	return sub, nil
}

func itemToFeedback(item map[string]types.AttributeValue) (domain.FeedbackRecord, error) {
	convID, err := strAttr(item, "conversationId")
	if err != nil {
		return domain.FeedbackRecord{}, err
	}
	rating, err := strAttr(item, "rating")
	if err != nil {
		return domain.FeedbackRecord{}, err
	}
	faqID, _ := strAttr(item, "faqId")
	query, _ := strAttr(item, "query")
	comment, _ := strAttr(item, "comment")

	rec := domain.FeedbackRecord{
		ConversationID: convID,
		FAQID:          faqID,
		Query:          query,
		Rating:         domain.Rating(rating),
		Comment:        comment,
	}
	if sk, err := strAttr(item, "SK"); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, strings.TrimPrefix(sk, skPrefixFB)); err == nil {
			rec.Timestamp = ts
		}
	}
	return rec, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
