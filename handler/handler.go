// Package handler routes API Gateway proxy events to the service layer
// and translates its errors into HTTP responses.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"faqbot/internal/dataset"
	"faqbot/internal/domain"
	"faqbot/internal/ident"
	"faqbot/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// User-facing fallback messages per error code.
var friendlyMessages = map[usecase.ErrorCode]string{
	usecase.ErrorValidation: "入力内容をご確認ください。",
	usecase.ErrorTransition: "この操作は現在の会話の状態では実行できません。",
	usecase.ErrorNotFound:   "指定された項目が見つかりませんでした。",
	usecase.ErrorDataset:    "ただいまデータを読み込めません。しばらくしてからお試しください。",
	usecase.ErrorInternal:   "申し訳ございません。一時的なエラーが発生しました。",
}

type conversationUsecase interface {
	Handle(ctx context.Context, in usecase.HandleInput) (usecase.HandleOutput, error)
}

type searchUsecase interface {
	Search(ctx context.Context, in usecase.SearchInput) (domain.Directive, error)
}

type feedbackUsecase interface {
	Record(ctx context.Context, in usecase.FeedbackInput) error
}

type adminUsecase interface {
	Status() dataset.Status
	Refresh() (dataset.Status, error)
	CategorySummary() map[string]dataset.CategoryStats
}

// Handler routes one API Gateway event.
type Handler struct {
	conv     conversationUsecase
	search   searchUsecase
	feedback feedbackUsecase
	admin    adminUsecase
	log      *zap.Logger
}

// NewHandler validates and wires the route targets.
func NewHandler(conv conversationUsecase, search searchUsecase, feedback feedbackUsecase, admin adminUsecase, log *zap.Logger) (*Handler, error) {
	if conv == nil {
		return nil, errors.New("handler: conversation usecase must not be nil")
	}
	if search == nil {
		return nil, errors.New("handler: search usecase must not be nil")
	}
	if feedback == nil {
		return nil, errors.New("handler: feedback usecase must not be nil")
	}
	if admin == nil {
		return nil, errors.New("handler: admin usecase must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{conv: conv, search: search, feedback: feedback, admin: admin, log: log}, nil
}

type conversationRequest struct {
	ConversationID string             `json:"conversation_id"`
	Action         string             `json:"action"`
	CategoryID     string             `json:"category_id"`
	FAQID          string             `json:"faq_id"`
	Query          string             `json:"query"`
	Form           domain.InquiryForm `json:"form"`
}

type conversationResponse struct {
	ConversationID string           `json:"conversation_id"`
	State          domain.State     `json:"state"`
	Directive      domain.Directive `json:"directive"`
}

type searchRequest struct {
	Query          string `json:"query"`
	Category       string `json:"category,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type feedbackRequest struct {
	ConversationID string `json:"conversation_id"`
	FAQID          string `json:"faq_id,omitempty"`
	Query          string `json:"query,omitempty"`
	Rating         string `json:"rating"`
	Comment        string `json:"comment,omitempty"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	ErrorID string   `json:"error_id"`
}

// Handle dispatches one API Gateway proxy event.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(req.Headers)

	switch {
	case req.HTTPMethod == http.MethodGet && req.Path == "/health":
		st := h.admin.Status()
		return h.respond(corrID, http.StatusOK, map[string]any{
			"status":  "healthy",
			"entries": st.Entries,
		}), nil

	case req.HTTPMethod == http.MethodPost && req.Path == "/api/conversation":
		return h.handleConversation(ctx, req.Body, corrID), nil

	case req.HTTPMethod == http.MethodPost && req.Path == "/api/search":
		return h.handleSearch(ctx, req.Body, corrID), nil

	case req.HTTPMethod == http.MethodPost && req.Path == "/api/feedback":
		return h.handleFeedback(ctx, req.Body, corrID), nil

	case req.HTTPMethod == http.MethodGet && req.Path == "/api/admin/data-source/status":
		return h.respond(corrID, http.StatusOK, h.admin.Status()), nil

	case req.HTTPMethod == http.MethodPost && req.Path == "/api/admin/data-source/refresh":
		st, err := h.admin.Refresh()
		if err != nil {
			return h.errorResponse(corrID, err), nil
		}
		return h.respond(corrID, http.StatusOK, st), nil

	case req.HTTPMethod == http.MethodGet && req.Path == "/api/admin/categories":
		return h.respond(corrID, http.StatusOK, h.admin.CategorySummary()), nil

	default:
		return h.respond(corrID, http.StatusNotFound, errorResponse{
			Error:   string(usecase.ErrorNotFound),
			Message: friendlyMessages[usecase.ErrorNotFound],
			ErrorID: corrID,
		}), nil
	}
}

func (h *Handler) handleConversation(ctx context.Context, body, corrID string) events.APIGatewayProxyResponse {
	var in conversationRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return h.badRequest(corrID, "malformed request body")
	}
	ev, err := eventFromRequest(in)
	if err != nil {
		return h.badRequest(corrID, err.Error())
	}

	out, err := h.conv.Handle(ctx, usecase.HandleInput{ConversationID: in.ConversationID, Event: ev})
	if err != nil {
		return h.errorResponse(corrID, err)
	}
	return h.respond(corrID, http.StatusOK, conversationResponse{
		ConversationID: out.ConversationID,
		State:          out.State,
		Directive:      out.Directive,
	})
}

func (h *Handler) handleSearch(ctx context.Context, body, corrID string) events.APIGatewayProxyResponse {
	var in searchRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return h.badRequest(corrID, "malformed request body")
	}

	directive, err := h.search.Search(ctx, usecase.SearchInput{
		Query:          in.Query,
		Category:       in.Category,
		ConversationID: in.ConversationID,
	})
	if err != nil {
		return h.errorResponse(corrID, err)
	}
	return h.respond(corrID, http.StatusOK, directive)
}

func (h *Handler) handleFeedback(ctx context.Context, body, corrID string) events.APIGatewayProxyResponse {
	var in feedbackRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return h.badRequest(corrID, "malformed request body")
	}

	err := h.feedback.Record(ctx, usecase.FeedbackInput{
		ConversationID: in.ConversationID,
		FAQID:          in.FAQID,
		Query:          in.Query,
		Rating:         in.Rating,
		Comment:        in.Comment,
	})
	if err != nil {
		return h.errorResponse(corrID, err)
	}
	return h.respond(corrID, http.StatusOK, map[string]string{"status": "ok"})
}

// eventFromRequest maps the wire action onto a flow event.
func eventFromRequest(in conversationRequest) (domain.Event, error) {
	switch in.Action {
	case "welcome":
		return domain.WelcomeEvent{}, nil
	case "select_category":
		return domain.SelectCategoryEvent{CategoryID: in.CategoryID}, nil
	case "select_faq":
		return domain.SelectFAQEvent{FAQID: in.FAQID}, nil
	case "search":
		return domain.FreeTextQueryEvent{Query: in.Query, Category: in.CategoryID}, nil
	case "start_inquiry":
		return domain.StartInquiryEvent{}, nil
	case "submit_inquiry":
		return domain.SubmitInquiryEvent{Form: in.Form}, nil
	case "restart":
		return domain.RestartEvent{}, nil
	case "":
		return nil, errors.New("action is required")
	default:
		return nil, fmt.Errorf("unknown action %q", in.Action)
	}
}

func (h *Handler) errorResponse(corrID string, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		ucErr = &usecase.Error{Code: usecase.ErrorInternal, Reason: "unexpected_error", Err: err}
	}

	status := statusForCode(ucErr.Code)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("code", string(ucErr.Code)),
			zap.String("reason", ucErr.Reason),
			zap.String("correlation_id", corrID),
			zap.Error(err))
	} else {
		h.log.Info("request rejected",
			zap.String("code", string(ucErr.Code)),
			zap.String("reason", ucErr.Reason),
			zap.String("correlation_id", corrID))
	}

	return h.respond(corrID, status, errorResponse{
		Error:   string(ucErr.Code),
		Message: friendlyMessages[ucErr.Code],
		Fields:  ucErr.Fields,
		ErrorID: corrID,
	})
}

func (h *Handler) badRequest(corrID, reason string) events.APIGatewayProxyResponse {
	h.log.Info("request rejected", zap.String("reason", reason), zap.String("correlation_id", corrID))
	return h.respond(corrID, http.StatusBadRequest, errorResponse{
		Error:   string(usecase.ErrorValidation),
		Message: friendlyMessages[usecase.ErrorValidation],
		ErrorID: corrID,
	})
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorValidation:
		return http.StatusUnprocessableEntity
	case usecase.ErrorTransition:
		return http.StatusConflict
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorDataset:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respond(corrID string, status int, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		h.log.Error("marshal response", zap.Error(err))
		raw = []byte(`{"error":"INTERNAL_ERROR"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(raw),
	}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && v != "" {
			return v
		}
	}
	return newCorrelationID()
}

var newCorrelationID = ident.CorrelationID
