// Package logger provee un logger Zap singleton con scoping por contexto.
//
// Decisiones:
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: cada sweep/tenant run lleva su propio logger con campos
//     (sweep_id, tenant_id) sin crear un nuevo core.
//   - Entornos: "dev" usa consola con colores, "prod" usa JSON.
//
// Uso:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("grouping notified", logger.TenantID(t), logger.Participants(members))
package logger
