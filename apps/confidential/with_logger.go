// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package confidential

import (
	"log/slog"

	"github.com/haha1903/tokengen-cert/apps/internal/logger"
)

// WithLogger allows for a custom logger to be set. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger.New(l)
	}
}
