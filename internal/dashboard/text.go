package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	calldomain "restaurant-bridge/backend/internal/call/domain"
	usagedomain "restaurant-bridge/backend/internal/usage/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// StatusBadge is the history label for a call status.
func StatusBadge(status calldomain.CallStatus) string {
	if status == calldomain.CallStatusResponded {
		return "🟢 対応済み"
	}
	return "🔴 未対応"
}

// TextRenderer writes snapshots to a terminal.
type TextRenderer struct {
	w        io.Writer
	clear    bool
	location *time.Location
}

// NewTextRenderer returns a renderer writing to w. With clear set, the screen is wiped
// before each frame.
func NewTextRenderer(w io.Writer, clear bool) *TextRenderer {
	return &TextRenderer{w: w, clear: clear, location: time.Local}
}

// Render satisfies RenderFunc.
func (r *TextRenderer) Render(s *Snapshot) error {
	var b strings.Builder
	if r.clear {
		b.WriteString("\033[H\033[2J")
	}
	fmt.Fprintf(&b, "📊 Bridge Staff Dashboard  (%s)\n", s.TakenAt.In(r.location).Format(timeLayout))
	if s.Degraded {
		b.WriteString("⚠️ データベースに接続できません\n")
	}

	b.WriteString("\n🔔 現在の呼び出し\n")
	if len(s.Pending) == 0 {
		b.WriteString("✅ 現在、未対応の呼び出しはありません\n")
	} else {
		fmt.Fprintf(&b, "⚠️ %d件の未対応呼び出しがあります\n", len(s.Pending))
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, c := range s.Pending {
			fmt.Fprintf(tw, "  #%d\tテーブル %s\t%s %s\t%s\t%s\n",
				c.ID, c.TableID, calldomain.Icon(c.CallType), strings.ToUpper(c.CallType),
				c.CreatedAt.In(r.location).Format(timeLayout), c.Message)
		}
		tw.Flush()
	}

	writeStats(&b, s.Stats)

	b.WriteString("\n📋 呼び出し履歴\n")
	if len(s.Recent) == 0 {
		b.WriteString("呼び出し履歴がありません\n")
	} else {
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, c := range s.Recent {
			responded := ""
			if c.RespondedAt != nil {
				responded = "✓ " + c.RespondedAt.In(r.location).Format(timeLayout)
			}
			fmt.Fprintf(tw, "  テーブル %s\t%s\t%s\t%s\t%s\n",
				c.TableID, c.CallType, c.CreatedAt.In(r.location).Format(timeLayout), StatusBadge(c.Status), responded)
		}
		tw.Flush()
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

func writeStats(b *strings.Builder, stats *usagedomain.Stats) {
	if stats == nil {
		stats = usagedomain.EmptyStats()
	}
	b.WriteString("\n📈 利用統計\n")
	fmt.Fprintf(b, "  フレーズタップ: %d   翻訳回数: %d   総利用回数: %d\n",
		stats.PhraseTaps, stats.Translations, stats.Total)

	b.WriteString("  🌏 言語別利用\n")
	if len(stats.Languages) == 0 {
		b.WriteString("    データがありません\n")
	}
	for _, l := range stats.Languages {
		fmt.Fprintf(b, "    %s %s: %d回\n", usagedomain.Flag(l.Key), l.Key, l.Count)
	}

	b.WriteString("  ⭐ 人気フレーズ\n")
	if len(stats.PopularPhrases) == 0 {
		b.WriteString("    データがありません\n")
	}
	for i, p := range stats.PopularPhrases {
		fmt.Fprintf(b, "    %d. %s (%d回)\n", i+1, p.Key, p.Count)
	}
}
