// Package logging provides structured logging using uber/zap.
//
// Two output modes:
//   - Production: JSON lines for machine parsing
//   - Development: colored console output for humans
//
// Components receive the embedded *zap.Logger; a nil logger passed to a
// component means zap.NewNop().
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
//	if err != nil {
//		return err
//	}
//	defer logger.Close()
//	logger.Info("Server starting", zap.String("addr", cfg.Server.Addr()))
package logging
