package app

import "context"

// Serve loads the configuration, builds the App and runs it until ctx is done.
// It returns an error instead of calling os.Exit to keep defers effective.
func Serve(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
