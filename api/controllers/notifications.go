package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adorncommerce/adorn-backend/api/responses"
	"github.com/adorncommerce/adorn-backend/api/validators"
	notifsvc "github.com/adorncommerce/adorn-backend/internal/notifications"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/pagination"
)

// NotificationList returns a cursor page of the admin notification feed.
func NotificationList(svc notifsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows := make([]notificationResponse, 0, len(page.Notifications))
		for _, row := range page.Notifications {
			rows = append(rows, newNotificationResponse(row))
		}
		responses.WriteSuccess(w, notificationListResponse{
			Notifications: rows,
			NextCursor:    page.NextCursor,
			UnreadCount:   page.UnreadCount,
		})
	}
}

// NotificationMarkRead stamps a notification as read. Idempotent.
func NotificationMarkRead(svc notifsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification id"))
			return
		}

		if err := svc.MarkRead(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	NextCursor    string                 `json:"next_cursor,omitempty"`
	UnreadCount   int64                  `json:"unread_count"`
}

type notificationResponse struct {
	ID          uuid.UUID        `json:"id"`
	Type        string           `json:"type"`
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Message     string           `json:"message"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func newNotificationResponse(row models.Notification) notificationResponse {
	return notificationResponse{
		ID:          row.ID,
		Type:        string(row.Type),
		OrderID:     row.OrderID,
		OrderNumber: row.OrderNumber,
		Amount:      row.Amount,
		Message:     row.Message,
		ReadAt:      row.ReadAt,
		CreatedAt:   row.CreatedAt,
	}
}
