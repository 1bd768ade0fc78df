package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID    = "run_id"
	KeyAttempt  = "attempt"
	KeyState    = "state"
	KeyTarget   = "target"
	KeyProject  = "project"
	KeyChange   = "change"
	KeyPatchset = "patchset"
	KeyRef      = "ref"
	KeyPath     = "path"
	KeyURL      = "url"
	KeyName     = "name"
	KeyCommand  = "command"
	KeyExitCode = "exit_code"
	KeyError    = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr   { return slog.String(KeyRunID, id) }
func Attempt(n int) slog.Attr     { return slog.Int(KeyAttempt, n) }
func State(s string) slog.Attr    { return slog.String(KeyState, s) }
func Target(t string) slog.Attr   { return slog.String(KeyTarget, t) }
func Project(p string) slog.Attr  { return slog.String(KeyProject, p) }
func Change(c string) slog.Attr   { return slog.String(KeyChange, c) }
func Patchset(p string) slog.Attr { return slog.String(KeyPatchset, p) }
func Ref(r string) slog.Attr      { return slog.String(KeyRef, r) }
func Path(p string) slog.Attr     { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr      { return slog.String(KeyURL, u) }
func Name(n string) slog.Attr     { return slog.String(KeyName, n) }
func Command(c string) slog.Attr  { return slog.String(KeyCommand, c) }
func ExitCode(code int) slog.Attr { return slog.Int(KeyExitCode, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
