package settings

import "codeberg.org/mutker/obsctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInvalidDBPath   = errors.ErrorCode("settings_invalid_db_path")
	ErrInvalidGeometry = errors.ErrorCode("settings_invalid_geometry")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("settings_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("settings_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("settings_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("settings_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("settings_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed
	ErrNotFound      = errors.ErrorCode("settings_geometry_not_found")

	// Preset Errors
	ErrPresetRead   = errors.ErrorCode("settings_preset_read_failed")
	ErrPresetDecode = errors.ErrorCode("settings_preset_decode_failed")
	ErrPresetEncode = errors.ErrorCode("settings_preset_encode_failed")
)
