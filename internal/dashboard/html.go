package dashboard

import (
	"bytes"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	calldomain "restaurant-bridge/backend/internal/call/domain"
	"restaurant-bridge/backend/internal/logging"
	"restaurant-bridge/backend/internal/server/interceptors"
	usagedomain "restaurant-bridge/backend/internal/usage/domain"
)

var pageTemplate = template.Must(template.New("board").Funcs(template.FuncMap{
	"icon":  calldomain.Icon,
	"flag":  usagedomain.Flag,
	"badge": StatusBadge,
	"upper": strings.ToUpper,
	"when":  func(t time.Time) string { return t.Local().Format(timeLayout) },
	"inc":   func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.RefreshSeconds}}">
<title>Bridge Staff Dashboard</title>
<style>
body{font-family:sans-serif;margin:1.5rem;max-width:60rem}
.call{display:flex;gap:1rem;align-items:center;border-bottom:1px solid #ddd;padding:.5rem 0}
.warn{color:#a15c00}.ok{color:#1b7f3b}.muted{color:#777;font-size:.9em}
</style>
</head>
<body>
<h1>📊 Bridge Staff Dashboard</h1>
<p class="muted">店員用管理画面 - {{.RefreshSeconds}}秒ごとに更新 ({{when .Snap.TakenAt}})</p>
{{if .Snap.Degraded}}<p class="warn">⚠️ データベースに接続できません</p>{{end}}

<h2>🔔 現在の呼び出し</h2>
{{if .Snap.Pending}}
<p class="warn">⚠️ {{len .Snap.Pending}}件の未対応呼び出しがあります</p>
{{range .Snap.Pending}}
<div class="call">
  <strong>テーブル {{.TableID}}</strong>
  <span>{{icon .CallType}} <b>{{upper .CallType}}</b>{{if .Message}}<br><span class="muted">📝 {{.Message}}</span>{{end}}<br><span class="muted">🕐 {{when .CreatedAt}}</span></span>
  <form method="post" action="/dashboard/calls/{{.ID}}/resolve"><button type="submit">✅ 対応済み</button></form>
</div>
{{end}}
{{else}}
<p class="ok">✅ 現在、未対応の呼び出しはありません</p>
<p class="muted">💡 お客様が「すみません」ボタンを押すと、ここに通知が表示されます</p>
{{end}}

<h2>📈 利用統計</h2>
<p>フレーズタップ: <b>{{.Snap.Stats.PhraseTaps}}</b> / 翻訳回数: <b>{{.Snap.Stats.Translations}}</b> / 総利用回数: <b>{{.Snap.Stats.Total}}</b></p>
<h3>🌏 言語別利用</h3>
{{range .Snap.Stats.Languages}}<div>{{flag .Key}} <b>{{.Key}}</b>: {{.Count}}回</div>{{else}}<p class="muted">データがありません</p>{{end}}
<h3>⭐ 人気フレーズ</h3>
{{range $i, $p := .Snap.Stats.PopularPhrases}}<div>{{inc $i}}. <b>{{$p.Key}}</b> ({{$p.Count}}回)</div>{{else}}<p class="muted">データがありません</p>{{end}}

<h2>📋 呼び出し履歴</h2>
{{range .Snap.Recent}}
<div class="call">
  <strong>テーブル {{.TableID}}</strong>
  <span><b>{{.CallType}}</b>{{if .Message}}: {{.Message}}{{end}}<br><span class="muted">📅 {{when .CreatedAt}}</span></span>
  <span>{{badge .Status}}{{if .RespondedAt}}<br><span class="muted">✓ {{when .RespondedAt}}</span>{{end}}</span>
</div>
{{else}}
<p class="muted">呼び出し履歴がありません</p>
{{end}}
</body>
</html>
`))

type pageData struct {
	Snap           *Snapshot
	RefreshSeconds int
}

// Handler serves the browser board and its resolve button.
type Handler struct {
	board    *Board
	resolver CallResolver
	refresh  time.Duration
	logger   logrus.FieldLogger
}

// NewHandler returns a board handler that asks browsers to reload every refresh interval.
// resolver may be nil, in which case the resolve route answers 404.
func NewHandler(board *Board, resolver CallResolver, refresh time.Duration, logger logrus.FieldLogger) *Handler {
	if refresh <= 0 {
		refresh = DefaultInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{board: board, resolver: resolver, refresh: refresh, logger: logger}
}

// Register mounts the board routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard", h.page)
	if h.resolver != nil {
		mux.HandleFunc("POST /dashboard/calls/{id}/resolve", h.resolve)
	}
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Snap:           h.board.Snapshot(r.Context()),
		RefreshSeconds: int(math.Ceil(h.refresh.Seconds())),
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		interceptors.Logger(r.Context(), h.logger).WithError(err).Error("dashboard: template failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// resolve handles the 対応済み button and sends the browser back to the board.
// Losing the race or storage trouble both just redisplay the board.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid call id", http.StatusBadRequest)
		return
	}
	if _, err := h.resolver.ResolveCall(r.Context(), id); err != nil {
		interceptors.Logger(r.Context(), h.logger).WithError(err).WithField("call_id", id).Warn("dashboard: resolve failed")
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
