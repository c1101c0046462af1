// Package pairing define los tipos de dominio y los contratos de repositorio
// del motor de emparejamiento.
//
// Estas interfaces son independientes del almacenamiento subyacente
// (PostgreSQL, SQLite, Redis, DynamoDB, memoria). Las implementaciones
// concretas viven en internal/store/adapters/.
//
//	┌─────────────────────────────────────────────────────┐
//	│      scheduler / pairing.Runner / http API          │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│           domain/pairing (interfaces)               │
//	│  OptInRepository, HistoryRepository, ProfileRepo    │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	     ┌─────────┬────────┼─────────┬──────────┐
//	     ▼         ▼        ▼         ▼          ▼
//	  memory      pg     sqlite     redis    dynamodb
//
// Convenciones:
//   - TenantID se pasa explícitamente en todos los métodos
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
package pairing
