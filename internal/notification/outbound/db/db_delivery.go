package db

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func (s *DB) CreateDelivery(ctx context.Context, d entity.CreateDelivery) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDelivery")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO notification_deliveries (id, channel, kind, purpose, recipient_masked, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
		d.ID, int16(d.Channel), int16(d.Kind), d.Purpose, d.RecipientMasked, int16(d.Status),
	)
	return s.mapError(err)
}

func (s *DB) UpdateDeliveryStatus(ctx context.Context, u entity.UpdateDelivery) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateDeliveryStatus")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`UPDATE notification_deliveries
		SET status = $2, provider_response = $3, error = $4, updated_at = now()
		WHERE id = $1`,
		u.ID, int16(u.Status), u.ProviderResponse, u.Error,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
