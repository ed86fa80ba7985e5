// Package worker mails exported schedules in the background. It consumes
// export notices published by the API and sends each recipient a fresh
// workbook built from the current store.
package worker

import (
	"context"
	"fmt"

	"commissions/internal/amqp"
	applog "commissions/internal/log"
	"commissions/internal/mail"
	"commissions/internal/services"
)

// MailSender is the delivery port; satisfied by mail.Sender.
type MailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// NoticeConsumer is the queue port; satisfied by amqp.Client.
type NoticeConsumer interface {
	ConsumeExportNotices(ctx context.Context, handler func(*amqp.ExportNoticeMessage) error) error
}

type NotifyWorker struct {
	svc      *services.AmortizationService
	consumer NoticeConsumer
	sender   MailSender
	logger   *applog.Logger
}

func NewNotifyWorker(svc *services.AmortizationService, consumer NoticeConsumer, sender MailSender, logger *applog.Logger) *NotifyWorker {
	return &NotifyWorker{
		svc:      svc,
		consumer: consumer,
		sender:   sender,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Run consumes notices until ctx is cancelled.
func (w *NotifyWorker) Run(ctx context.Context) error {
	return w.consumer.ConsumeExportNotices(ctx, func(msg *amqp.ExportNoticeMessage) error {
		return w.Handle(ctx, msg)
	})
}

// Handle recomputes the schedule, builds the workbook and mails it. An error
// requeues the notice.
func (w *NotifyWorker) Handle(ctx context.Context, msg *amqp.ExportNoticeMessage) error {
	result, err := w.svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("compute schedule: %w", err)
	}

	filename, data, err := w.svc.ExportSchedule(result.Schedule)
	if err != nil {
		return fmt.Errorf("build export: %w", err)
	}

	body := fmt.Sprintf("The amortization schedule export %s is attached (%d entries).",
		filename, len(result.Schedule))
	err = w.sender.Send(ctx, mail.Message{
		To:             msg.Recipient,
		Subject:        "Amortization schedule export",
		Body:           body,
		AttachmentName: filename,
		Attachment:     data,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	w.logger.InfoContext(ctx, "Export notification delivered",
		applog.FieldMessageID, msg.ID.String(),
		applog.FieldRecipient, msg.Recipient,
		applog.FieldEntryCount, len(result.Schedule))
	return nil
}
