package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/roster"
)

// searchLimit caps the matches /player lists.
const searchLimit = 5

// Auction accepts the intents the slash commands issue.
type Auction interface {
	Rules() auction.Rules
	DrawNext(ctx context.Context) (*auction.Player, *auction.Snapshot, error)
	PlaceBid(ctx context.Context, playerID, teamID string, amount int) (*auction.Snapshot, error)
	Sold(ctx context.Context, playerID string) (*auction.Snapshot, error)
	Unsold(ctx context.Context, playerID string) (*auction.Snapshot, error)
	Undo(ctx context.Context) (*auction.Player, *auction.Snapshot, error)
	Withdraw(ctx context.Context) (*auction.Snapshot, error)
	SetPhase(ctx context.Context, phase auction.Phase) (bool, *auction.Snapshot, error)
	ToggleInterest(ctx context.Context, teamID, playerID string) (bool, *auction.Snapshot, error)
}

// Reader serves the latest snapshot seen by this process.
type Reader interface {
	Snapshot() (*auction.Snapshot, bool)
}

// Options holds the options of one invocation by name.
type Options map[string]*discordgo.ApplicationCommandInteractionDataOption

// String returns the string option name, or "" if it is absent.
func (o Options) String(name string) string {
	if v := o[name]; v != nil {
		if s, ok := v.Value.(string); ok {
			return s
		}
	}
	return ""
}

// Int returns the integer option name, or 0 if it is absent. Discord
// delivers numbers as JSON floats.
func (o Options) Int(name string) int {
	v := o[name]
	if v == nil {
		return 0
	}
	switch n := v.Value.(type) {
	case float64:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	}
	return 0
}

// Handlers process Discord interactions.
type Handlers struct {
	auction Auction
	reader  Reader
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewHandlers creates new command handlers.
func NewHandlers(a Auction, reader Reader, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		auction: a,
		reader:  reader,
		logger:  logger,
		tracer:  tp.Tracer("github.com/muktadirmaashif/itcf-2026/internal/bot/commands"),
	}
}

var auctioneerOnly = int64(discordgo.PermissionManageServer)

// SlashCommands returns the slash command definitions.
func SlashCommands() []*discordgo.ApplicationCommand {
	phaseChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(auction.Phases))
	for _, p := range auction.Phases {
		phaseChoices = append(phaseChoices, &discordgo.ApplicationCommandOptionChoice{Name: string(p), Value: string(p)})
	}
	teamOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "team",
		Description: "Team ID",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "status",
			Description: "Show the phase, the lot on the floor and the live bid",
		},
		{
			Name:                     "draw",
			Description:              "Draw the next player of the current phase",
			DefaultMemberPermissions: &auctioneerOnly,
		},
		{
			Name:        "bid",
			Description: "Bid on the player on the floor",
			Options: []*discordgo.ApplicationCommandOption{
				teamOption,
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Bid amount in points",
					Required:    true,
				},
			},
		},
		{
			Name:                     "sold",
			Description:              "Sell the player on the floor to the highest bidder",
			DefaultMemberPermissions: &auctioneerOnly,
		},
		{
			Name:                     "unsold",
			Description:              "Pass on the player on the floor",
			DefaultMemberPermissions: &auctioneerOnly,
		},
		{
			Name:                     "undo",
			Description:              "Reverse the last sale or pass",
			DefaultMemberPermissions: &auctioneerOnly,
		},
		{
			Name:                     "withdraw",
			Description:              "Take the player off the floor without a result",
			DefaultMemberPermissions: &auctioneerOnly,
		},
		{
			Name:                     "phase",
			Description:              "Move the auction to another phase",
			DefaultMemberPermissions: &auctioneerOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "phase",
					Description: "Phase to move to",
					Required:    true,
					Choices:     phaseChoices,
				},
			},
		},
		{
			Name:        "roster",
			Description: "Show a team's players, purse and limits",
			Options:     []*discordgo.ApplicationCommandOption{teamOption},
		},
		{
			Name:        "player",
			Description: "Search players by name, role or ID",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Name, role or ID",
					Required:    true,
				},
			},
		},
		{
			Name:        "interest",
			Description: "Mark or unmark a Category C player for your team",
			Options: []*discordgo.ApplicationCommandOption{
				teamOption,
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player",
					Description: "Player ID",
					Required:    true,
				},
			},
		},
	}
}

// InteractionCreate handles incoming slash command interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	opts := make(Options, len(data.Options))
	for _, o := range data.Options {
		opts[o.Name] = o
	}
	respond(s, i, h.Execute(context.Background(), data.Name, opts))
}

// Execute runs the named command and returns the reply.
func (h *Handlers) Execute(ctx context.Context, name string, opts Options) string {
	ctx, span := h.tracer.Start(ctx, "InteractionCreate",
		trace.WithAttributes(attribute.String("command", name)),
	)
	defer span.End()

	var (
		msg string
		err error
	)
	switch name {
	case "status":
		msg, err = h.handleStatus()
	case "draw":
		msg, err = h.handleDraw(ctx)
	case "bid":
		msg, err = h.handleBid(ctx, opts)
	case "sold":
		msg, err = h.handleSold(ctx)
	case "unsold":
		msg, err = h.handleUnsold(ctx)
	case "undo":
		msg, err = h.handleUndo(ctx)
	case "withdraw":
		msg, err = h.handleWithdraw(ctx)
	case "phase":
		msg, err = h.handlePhase(ctx, opts)
	case "roster":
		msg, err = h.handleRoster(opts)
	case "player":
		msg, err = h.handlePlayer(opts)
	case "interest":
		msg, err = h.handleInterest(ctx, opts)
	default:
		return "Unknown command"
	}
	if err != nil {
		span.RecordError(err)
		h.logger.InfoContext(ctx, "command refused", slog.String("command", name), slog.Any("error", err))
		return failure(err)
	}
	return msg
}

func (h *Handlers) snapshot() (*auction.Snapshot, error) {
	s, ok := h.reader.Snapshot()
	if !ok {
		return nil, errNotLoaded
	}
	return s, nil
}

func (h *Handlers) handleStatus() (string, error) {
	s, err := h.snapshot()
	if err != nil {
		return "", err
	}
	return formatStatus(s, h.auction.Rules()), nil
}

func (h *Handlers) handleDraw(ctx context.Context) (string, error) {
	p, s, err := h.auction.DrawNext(ctx)
	if err != nil {
		return "", err
	}
	if p == nil {
		return fmt.Sprintf("No players left to draw in **%s**.", s.State.Phase), nil
	}
	return fmt.Sprintf("On the floor: %s, opening at **%d**.", formatPlayer(*p), p.BasePrice), nil
}

func (h *Handlers) handleBid(ctx context.Context, opts Options) (string, error) {
	teamID := opts.String("team")
	amount := opts.Int("amount")

	// The bid is aimed at the lot this replica shows, so a bid typed while
	// the lot changed is refused rather than landing on the next player.
	var playerID string
	if seen, ok := h.reader.Snapshot(); ok {
		playerID = seen.State.CurrentPlayerID
	}
	s, err := h.auction.PlaceBid(ctx, playerID, teamID, amount)
	if err != nil {
		return "", err
	}
	p := s.CurrentPlayer()
	return fmt.Sprintf("**%s** bids **%d** for %s.", teamName(s, teamID), amount, p.Name), nil
}

// lotOnFloor returns the id of the lot this replica shows.
func (h *Handlers) lotOnFloor() (string, error) {
	s, err := h.snapshot()
	if err != nil {
		return "", err
	}
	if !s.State.LotActive() {
		return "", auction.ErrNoActiveLot
	}
	return s.State.CurrentPlayerID, nil
}

func (h *Handlers) handleSold(ctx context.Context) (string, error) {
	id, err := h.lotOnFloor()
	if err != nil {
		return "", err
	}
	s, err := h.auction.Sold(ctx, id)
	if err != nil {
		return "", err
	}
	p := s.Player(id)
	return fmt.Sprintf("SOLD: %s to **%s** for **%d**.", formatPlayer(*p), teamName(s, p.SoldToTeamID), p.SoldPrice), nil
}

func (h *Handlers) handleUnsold(ctx context.Context) (string, error) {
	id, err := h.lotOnFloor()
	if err != nil {
		return "", err
	}
	s, err := h.auction.Unsold(ctx, id)
	if err != nil {
		return "", err
	}
	p := s.Player(id)
	if p.Status == auction.StatusAvailable {
		return fmt.Sprintf("UNSOLD: %s drops to Category %s at **%d**.", p.Name, p.Category, p.BasePrice), nil
	}
	return fmt.Sprintf("UNSOLD: %s.", formatPlayer(*p)), nil
}

func (h *Handlers) handleUndo(ctx context.Context) (string, error) {
	p, _, err := h.auction.Undo(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Undone. %s is back on the floor at **%d**.", formatPlayer(*p), p.BasePrice), nil
}

func (h *Handlers) handleWithdraw(ctx context.Context) (string, error) {
	if _, err := h.auction.Withdraw(ctx); err != nil {
		return "", err
	}
	return "Lot withdrawn.", nil
}

func (h *Handlers) handlePhase(ctx context.Context, opts Options) (string, error) {
	phase := auction.Phase(opts.String("phase"))
	exhausted, _, err := h.auction.SetPhase(ctx, phase)
	if err != nil {
		return "", err
	}
	if exhausted {
		return fmt.Sprintf("Phase is now **%s**. No players are left to draw in it.", phase), nil
	}
	return fmt.Sprintf("Phase is now **%s**.", phase), nil
}

func (h *Handlers) handleRoster(opts Options) (string, error) {
	s, err := h.snapshot()
	if err != nil {
		return "", err
	}
	v, err := roster.TeamRoster(s, h.auction.Rules(), opts.String("team"))
	if err != nil {
		return "", err
	}
	return formatRoster(v), nil
}

func (h *Handlers) handlePlayer(opts Options) (string, error) {
	s, err := h.snapshot()
	if err != nil {
		return "", err
	}
	query := opts.String("query")
	matches := roster.Search(s, query, searchLimit)
	if len(matches) == 0 {
		return fmt.Sprintf("No players match %q.", query), nil
	}
	return formatMatches(s, matches), nil
}

func (h *Handlers) handleInterest(ctx context.Context, opts Options) (string, error) {
	teamID := opts.String("team")
	playerID := opts.String("player")
	marked, s, err := h.auction.ToggleInterest(ctx, teamID, playerID)
	if err != nil {
		return "", err
	}
	name := s.Player(playerID).Name
	if marked {
		return fmt.Sprintf("**%s** marked %s (%d/%d).", teamName(s, teamID), name,
			len(s.TeamInterests(teamID)), h.auction.Rules().InterestLimit), nil
	}
	return fmt.Sprintf("**%s** unmarked %s.", teamName(s, teamID), name), nil
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
		},
	})
}
