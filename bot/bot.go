package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"channel-rotator/archive"
	"channel-rotator/config"
	"channel-rotator/database"
	rotgrpc "channel-rotator/grpc"
	"channel-rotator/models"
	"channel-rotator/platform"
	"channel-rotator/rotation"
	"channel-rotator/telemetry"
	"channel-rotator/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/afero"
)

// ErrInvalidCategory means CATEGORY_ID does not name a category of the configured guild.
var ErrInvalidCategory = errors.New("CATEGORY_ID is not a category channel or does not exist")

// Bot encapsulates the bot's state. It is built once at startup and passed to whoever needs it.
type Bot struct {
	Session  *discordgo.Session
	Config   *models.RotatorConfig
	Client   platform.Client
	Clock    *utils.Clock
	Logger   *utils.AdminLogger
	Auth     *utils.Auth
	Rotator  *rotation.Rotator
	Events   *database.EventLog    // nil when DB_PATH is empty
	Health   *rotgrpc.HealthServer // nil when GRPC_HEALTH_ADDR is empty
	Commands []*discordgo.ApplicationCommand

	scheduler *Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBot creates and initializes a new Bot instance.
func NewBot(cfg *models.RotatorConfig) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	clock, err := utils.NewClock(cfg.Timezone, cfg.Locale)
	if err != nil {
		return nil, err
	}

	client := platform.NewSession(dg)
	b := &Bot{
		Session: dg,
		Config:  cfg,
		Client:  client,
		Clock:   clock,
		Logger:  utils.NewAdminLogger(client, cfg.AdminLogChannelID),
		Auth:    utils.NewAuth(cfg),
	}

	opts := rotation.Options{
		GuildID:    cfg.GuildID,
		CategoryID: cfg.CategoryID,
		Period:     cfg.RotationPeriod(),
		Clock:      clock,
		Titles:     rotation.NewRandomTitles(),
		Logger:     b.Logger,
	}

	if cfg.DBPath != "" {
		events, err := database.InitDB(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		b.Events = events
		opts.Recorder = events
	}
	if cfg.GRPCHealthAddr != "" {
		b.Health = rotgrpc.NewHealthServer()
		opts.Health = b.Health
	}

	sink := archive.NewFileSink(afero.NewOsFs())
	opts.Transcripts = sink
	archiver := archive.NewArchiver(client, sink, clock, cfg.OutputDir, cfg.ArchiveLimit)
	b.Rotator = rotation.New(client, archiver, opts)

	return b, nil
}

// ValidateCategory checks that categoryID is a category channel in guildID.
func ValidateCategory(ctx context.Context, client platform.Client, guildID, categoryID string) error {
	ch, err := client.Channel(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCategory, categoryID, err)
	}
	if ch.Type != discordgo.ChannelTypeGuildCategory || ch.GuildID != guildID {
		return fmt.Errorf("%w: %s", ErrInvalidCategory, categoryID)
	}
	return nil
}

// Start opens the bot's session, checks the category, makes sure a managed channel exists
// and starts the scheduler and the optional metrics and health listeners.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	b.ctx, b.cancel = context.WithCancel(context.Background())
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	log.Printf("logged in as %s", b.Session.State.User.String())

	if err := ValidateCategory(b.ctx, b.Client, b.Config.GuildID, b.Config.CategoryID); err != nil {
		return err
	}

	if len(b.Commands) > 0 {
		if _, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, b.Config.GuildID, b.Commands); err != nil {
			log.Printf("Cannot register slash commands: %v", err)
		}
	}

	telemetry.Init()
	if addr := b.Config.MetricsAddr; addr != "" {
		go func() {
			if err := telemetry.Serve(b.ctx, addr); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}
	if b.Health != nil {
		go func() {
			if err := b.Health.Serve(b.ctx, b.Config.GRPCHealthAddr); err != nil {
				log.Printf("Health server stopped: %v", err)
			}
		}()
	}

	if _, err := b.Rotator.EnsureActive(b.ctx); err != nil {
		b.Logger.Error(b.ctx, "Bot", "Startup", fmt.Sprintf("Initial rotation failed: %v", err))
	}

	var pruner Pruner
	if b.Events != nil {
		pruner = b.Events
	}
	scheduler, err := NewScheduler(b.Config.CronTime, b.Clock.Location, b.Rotator, pruner, b.Config.EventRetention)
	if err != nil {
		return err
	}
	b.scheduler = scheduler
	b.scheduler.Start()

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	if b.cancel != nil {
		b.cancel()
	}
	if b.Session != nil {
		b.Session.Close()
	}
	if b.Events != nil {
		b.Events.Close()
	}
	fmt.Println("Bot stopped gracefully.")
}

// Run is the main entry point for the bot application.
func Run(registerHandlers func(*Bot), commands []*discordgo.ApplicationCommand) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	bot, err := NewBot(cfg)
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}
	bot.Commands = commands

	if err := bot.Start(registerHandlers); err != nil {
		bot.Stop()
		log.Fatalf("Error starting bot: %v", err)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()
}
