package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldPayeeID        = "payee_id"
	FieldProductID      = "product_id"
	FieldRowCount       = "row_count"
	FieldEntryCount     = "entry_count"
	FieldSkippedCount   = "skipped_count"
	FieldSetupCount     = "setup_count"
	FieldSheetName      = "sheet_name"
	FieldFilename       = "filename"
	FieldRecipient      = "recipient"
	FieldMessageID      = "message_id"
	FieldQueue          = "queue"
	FieldExchange       = "exchange"
	FieldDimension      = "dimension"
	FieldModel          = "model"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentEngine  = "engine"
	ComponentService = "service"
	ComponentStorage = "storage"
	ComponentXLSX    = "xlsx"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMail    = "mail"
	ComponentFormula = "formula"
	ComponentCache   = "cache"
)
