package guard

import (
	"fmt"
	"strings"
	"text/template"
)

// Marker identifies a hook file as ours; install and uninstall refuse to
// touch hooks that do not carry it.
const Marker = "# agent-mail guard hook"

// The script is a shim: chain the previously installed hook (propagating a
// non-zero exit), then exec the coordinating binary's standalone checker.
// Pre-push stdin is captured to a temp file because both the chained hook and
// the checker need to read the ref lines.
var scriptTemplate = template.Must(template.New("hook").Parse(`#!/bin/sh
{{.Marker}} ({{.Kind}}) generated, do not edit. Remove with: agentmail guard uninstall
AM_KIND="{{.Kind}}"
AM_RESERVATIONS="{{.ReservationsDir}}"
AM_BIN="{{.Binary}}"
{{- if eq .Kind "pre-push"}}
AM_STDIN="$(mktemp)"
trap 'rm -f "$AM_STDIN"' EXIT
cat >"$AM_STDIN"
{{- end}}
{{- if .Chained}}
if [ -x "{{.Chained}}" ]; then
{{- if eq .Kind "pre-push"}}
	"{{.Chained}}" "$@" <"$AM_STDIN" || exit $?
{{- else}}
	"{{.Chained}}" "$@" || exit $?
{{- end}}
fi
{{- end}}
if [ ! -x "$AM_BIN" ]; then
	echo "agent-mail: $AM_BIN not found; skipping reservation check" >&2
	exit 0
fi
{{- if eq .Kind "pre-push"}}
exec "$AM_BIN" hook run --kind "$AM_KIND" --reservations "$AM_RESERVATIONS" <"$AM_STDIN"
{{- else}}
exec "$AM_BIN" hook run --kind "$AM_KIND" --reservations "$AM_RESERVATIONS"
{{- end}}
`))

type scriptParams struct {
	Marker          string
	Kind            HookKind
	ReservationsDir string
	Binary          string
	Chained         string
}

// RenderCommitHook renders the pre-commit guard for a project's reservation
// directory. binary is the coordinating executable the script will exec;
// chained, when non-empty, is a previously installed hook to run first.
func RenderCommitHook(reservationsDir, binary, chained string) (string, error) {
	return render(PreCommit, reservationsDir, binary, chained)
}

// RenderPushHook renders the pre-push guard.
func RenderPushHook(reservationsDir, binary, chained string) (string, error) {
	return render(PrePush, reservationsDir, binary, chained)
}

func render(kind HookKind, reservationsDir, binary, chained string) (string, error) {
	if reservationsDir == "" {
		return "", fmt.Errorf("reservations dir required")
	}
	if binary == "" {
		return "", fmt.Errorf("binary path required")
	}
	var b strings.Builder
	err := scriptTemplate.Execute(&b, scriptParams{
		Marker:          Marker,
		Kind:            kind,
		ReservationsDir: reservationsDir,
		Binary:          binary,
		Chained:         chained,
	})
	if err != nil {
		return "", fmt.Errorf("render %s hook: %w", kind, err)
	}
	return b.String(), nil
}
