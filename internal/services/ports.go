package services

import (
	"context"

	"commissions/internal/amqp"
	"commissions/internal/core"
)

// Store is the persistence port shared by the sqlite and memory backends.
type Store interface {
	ReplaceTransactions(ctx context.Context, txs []core.Transaction) error
	ListTransactions(ctx context.Context) ([]core.Transaction, error)

	ReplaceSetups(ctx context.Context, setups []core.SetupRule) ([]core.SetupRule, error)
	ListSetups(ctx context.Context) ([]core.SetupRule, error)
	DeleteSetupByProduct(ctx context.Context, productID string) ([]core.SetupRule, error)

	ListColumnMappings(ctx context.Context) ([]core.ColumnMapping, error)
	ReplaceColumnMappings(ctx context.Context, mappings []core.ColumnMapping) error

	Close() error
}

// NoticePublisher publishes export notices for the notify worker.
type NoticePublisher interface {
	PublishExportNotice(ctx context.Context, msg *amqp.ExportNoticeMessage) error
}
