package commands_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/bot/commands"
	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/coordinator"
	"github.com/muktadirmaashif/itcf-2026/internal/replica"
	"github.com/muktadirmaashif/itcf-2026/internal/store/memory"
)

type firstRand struct{}

func (firstRand) Intn(int) int { return 0 }

func newHandlers(t *testing.T) (*commands.Handlers, *coordinator.Manager) {
	t.Helper()
	clk := clock.Mock{T: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}
	st := memory.New()
	cache := replica.New(st, slog.Default(), clk)
	assert.NoError(t, cache.Reload(context.Background()))

	e := auction.NewEngine(auction.DefaultRules(), clk)
	e.Rand = firstRand{}
	m, err := coordinator.NewManager(st, e, slog.Default(), tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider(),
		coordinator.WithCommitHook(cache.Offer))
	assert.NoError(t, err)

	ctx := context.Background()
	_, err = m.ImportTeams(ctx, []auction.TeamSeed{{ID: "t1", Name: "Falcons"}, {ID: "t2", Name: "Tigers"}})
	assert.NoError(t, err)
	_, err = m.ImportPlayers(ctx, []auction.Player{
		{ID: "pa", Name: "Alpha", Role: "Batter", Category: auction.CategoryA},
		{ID: "pc", Name: "Charlie", Role: "Keeper", Category: auction.CategoryC},
	})
	assert.NoError(t, err)
	return commands.NewHandlers(m, cache, slog.Default(), tracenoop.NewTracerProvider()), m
}

func opt(name string, v any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Value: v}
}

func opts(o ...*discordgo.ApplicationCommandInteractionDataOption) commands.Options {
	out := make(commands.Options, len(o))
	for _, v := range o {
		out[v.Name] = v
	}
	return out
}

func TestExecute_LotFlow(t *testing.T) {
	h, _ := newHandlers(t)
	ctx := context.Background()

	steps := []struct {
		name string
		opts commands.Options
		want string
	}{
		{"phase", opts(opt("phase", "CATEGORY_A")), "Phase is now **CATEGORY_A**."},
		{"status", nil, "No lot on the floor. 1 left to draw."},
		{"draw", nil, "On the floor: **Alpha** (A, Batter), opening at **10000**."},
		// Discord sends integers as JSON numbers.
		{"bid", opts(opt("team", "t1"), opt("amount", float64(10000))), "**Falcons** bids **10000** for Alpha."},
		{"status", nil, "**Falcons** leads at **10000**, next bid 11000."},
		{"bid", opts(opt("team", "t1"), opt("amount", float64(11000))), "Refused: team is already the highest bidder."},
		{"sold", nil, "SOLD: **Alpha** (A, Batter) to **Falcons** for **10000**."},
		{"roster", opts(opt("team", "t1")), "- A Alpha: 10000"},
		{"undo", nil, "Undone. **Alpha** (A, Batter) is back on the floor at **10000**."},
		{"unsold", nil, "UNSOLD: Alpha drops to Category B at **5000**."},
		{"sold", nil, "Refused: no lot is on the floor."},
	}
	for _, s := range steps {
		got := h.Execute(ctx, s.name, s.opts)
		if !strings.Contains(got, s.want) {
			t.Fatalf("/%s: got %q, want it to contain %q", s.name, got, s.want)
		}
	}
}

func TestExecute_Interest(t *testing.T) {
	h, _ := newHandlers(t)
	ctx := context.Background()

	got := h.Execute(ctx, "interest", opts(opt("team", "t2"), opt("player", "pc")))
	check.Equal(t, "**Tigers** marked Charlie (1/20).", got)

	got = h.Execute(ctx, "interest", opts(opt("team", "t2"), opt("player", "pa")))
	check.Equal(t, "Refused: only available category C players can be marked.", got)

	got = h.Execute(ctx, "interest", opts(opt("team", "t2"), opt("player", "pc")))
	check.Equal(t, "**Tigers** unmarked Charlie.", got)
}

func TestExecute_Player(t *testing.T) {
	h, _ := newHandlers(t)
	ctx := context.Background()

	got := h.Execute(ctx, "player", opts(opt("query", "keep")))
	check.Equal(t, "`pc` **Charlie** (C, Keeper): AVAILABLE", got)

	got = h.Execute(ctx, "player", opts(opt("query", "zzzz")))
	check.Equal(t, `No players match "zzzz".`, got)
}

type emptyReader struct{}

func (emptyReader) Snapshot() (*auction.Snapshot, bool) { return nil, false }

func TestExecute_NotLoaded(t *testing.T) {
	_, m := newHandlers(t)
	h := commands.NewHandlers(m, emptyReader{}, slog.Default(), tracenoop.NewTracerProvider())
	got := h.Execute(context.Background(), "status", nil)
	check.True(t, strings.Contains(got, "unavailable"))
}

func TestExecute_UnknownCommand(t *testing.T) {
	h, _ := newHandlers(t)
	check.Equal(t, "Unknown command", h.Execute(context.Background(), "dkp", nil))
}

func TestSlashCommands(t *testing.T) {
	want := []string{"status", "draw", "bid", "sold", "unsold", "undo", "withdraw", "phase", "roster", "player", "interest"}
	cmds := commands.SlashCommands()
	assert.Equal(t, len(want), len(cmds))

	h, _ := newHandlers(t)
	for i, c := range cmds {
		check.Equal(t, want[i], c.Name)
		check.NotEqual(t, "Unknown command", h.Execute(context.Background(), c.Name, nil))
	}
}

func TestOptions(t *testing.T) {
	o := opts(opt("amount", float64(12500)), opt("team", "t1"))
	check.Equal(t, 12500, o.Int("amount"))
	check.Equal(t, "t1", o.String("team"))
	check.Equal(t, 0, o.Int("missing"))
	check.Equal(t, "", o.String("amount"))
}
