package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// RequestLogger writes one structured line per request.  Server errors
// log at error level and client errors at warn.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req, res := c.Request(), c.Response()

            lvl := zapcore.InfoLevel
            switch {
            case res.Status >= 500:
                lvl = zapcore.ErrorLevel
            case res.Status >= 400:
                lvl = zapcore.WarnLevel
            }
            if ce := log.Check(lvl, "request"); ce != nil {
                fields := []zap.Field{
                    zap.String("method", req.Method),
                    zap.String("route", c.Path()),
                    zap.String("uri", req.RequestURI),
                    zap.Int("status", res.Status),
                    zap.Int64("bytes", res.Size),
                    zap.Duration("latency", time.Since(start)),
                    zap.String("remote_ip", c.RealIP()),
                }
                if err != nil {
                    fields = append(fields, zap.Error(err))
                }
                ce.Write(fields...)
            }
            return nil
        }
    }
}
