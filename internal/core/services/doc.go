// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IndexService owns ingestion (chunk, embed, append), similarity search
// and index persistence. SettingsService maps config keys onto
// domain.AppSettings. SyncOrchestrator keeps the index in step with files.
package services
