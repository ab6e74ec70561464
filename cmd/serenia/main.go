// Command serenia runs the Serenia companion in a terminal.
//
// It stands in for the mobile rendering surface: lines typed at the prompt
// become patient messages, slash commands drive the suggestion, exercise,
// severity, mood and profile features, and assistant replies are printed as
// they land.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/serenia-app/serenia/internal/models"
	"github.com/serenia-app/serenia/internal/mood"
	"github.com/serenia-app/serenia/internal/profile"
	"github.com/serenia-app/serenia/internal/reply"
	"github.com/serenia-app/serenia/internal/scheduler"
	"github.com/serenia-app/serenia/internal/session"
	"github.com/serenia-app/serenia/internal/store"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Serenia state data
	DefaultStateDir = "/var/lib/serenia"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "serenia.db"
	// moodHistoryWindow bounds how far back mood records are hydrated.
	moodHistoryWindow = 31 * 24 * time.Hour
)

// Config holds environment configuration
type Config struct {
	DBDriver     string
	DBDSN        string
	StateDir     string
	ReminderCron string
	LogLevel     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDriver     *string
	dbDSN        *string
	reminderCron *string
	memory       *bool
}

func main() {
	config := loadEnvironmentConfig()
	initializeLogger(config.LogLevel)
	flags := parseCommandLineFlags(config)

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := run(st, flags); err != nil {
		slog.Error("Serenia failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Serenia exited successfully")
}

// initializeLogger sets up structured logging at the configured level.
func initializeLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and a .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		DBDriver:     os.Getenv("SERENIA_DB_DRIVER"),
		DBDSN:        os.Getenv("SERENIA_DB_DSN"),
		StateDir:     os.Getenv("SERENIA_STATE_DIR"),
		ReminderCron: os.Getenv("SERENIA_REMINDER_CRON"),
		LogLevel:     os.Getenv("SERENIA_LOG_LEVEL"),
	}

	if config.DBDSN == "" {
		config.DBDSN = os.Getenv("DATABASE_URL")
	}
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "directory for Serenia state data"),
		dbDriver:     flag.String("db-driver", config.DBDriver, "database driver (sqlite3 or postgres)"),
		dbDSN:        flag.String("db-dsn", config.DBDSN, "database connection string"),
		reminderCron: flag.String("reminder-cron", config.ReminderCron, "cron expression for the daily mood check-in reminder"),
		memory:       flag.Bool("memory", false, "use an in-memory store (nothing persisted)"),
	}
	flag.Parse()
	return flags
}

// openStore selects and opens the configured store backend.
func openStore(flags Flags) (store.Store, error) {
	if *flags.memory {
		slog.Info("Using in-memory store, nothing will be persisted")
		return store.NewInMemoryStore(), nil
	}

	driver := *flags.dbDriver
	dsn := *flags.dbDSN
	if driver == "" {
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			driver = "postgres"
		} else {
			driver = "sqlite3"
		}
	}

	switch driver {
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(dsn))
	case "sqlite3":
		if dsn == "" {
			dsn = filepath.Join(*flags.stateDir, DefaultDBFileName)
			slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", dsn)
		}
		return store.NewSQLiteStore(store.WithDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// renderer prints session updates, tracking how many messages it has shown.
type renderer struct {
	mu      sync.Mutex
	printed int
	typing  bool
}

func (r *renderer) render(snap session.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range snap.Messages[r.printed:] {
		switch m.Role {
		case models.RolePatient:
			fmt.Printf("vous> %s\n", m.Text)
		case models.RoleProfessional:
			fmt.Printf("pro>  %s\n", m.Text)
		default:
			fmt.Printf("bot>  %s\n", m.Text)
		}
	}
	r.printed = len(snap.Messages)

	if snap.IsTyping && !r.typing {
		fmt.Println("      (le bot écrit…)")
	}
	r.typing = snap.IsTyping

	if snap.ShowSuggestions && len(snap.Suggestions) > 0 {
		fmt.Printf("      suggestions: %s\n", strings.Join(snap.Suggestions, " | "))
	}
	if snap.Exercising {
		fmt.Println("      (/continuer pour avancer, /arreter pour terminer)")
	}
}

// run wires the session, mood tracker and reminder scheduler to a REPL.
func run(st store.Store, flags Flags) error {
	records, err := st.ListMoodRecords(time.Now().Add(-moodHistoryWindow))
	if err != nil {
		return fmt.Errorf("hydrate mood history: %w", err)
	}
	tracker := mood.Load(records)
	profiles := profile.NewService(st)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if expr := *flags.reminderCron; expr != "" {
		if err := sched.AddJob(expr, func() {
			fmt.Println("\nrappel> Comment vous sentez-vous aujourd’hui ? (/humeur 😊|😐|😔|😭|😡)")
		}); err != nil {
			return fmt.Errorf("invalid reminder cron %q: %w", expr, err)
		}
		slog.Info("Daily mood reminder scheduled", "cron", expr)
	}

	r := &renderer{}
	timer := session.NewSimpleTimer()
	defer timer.Stop()
	composer := reply.NewComposer(rand.New(rand.NewSource(time.Now().UnixNano())))
	sess := session.New(composer, timer, reply.InitialSuggestions(), session.WithOnChange(r.render))
	defer sess.Close()

	r.render(sess.Snapshot())
	fmt.Println("      (/aide pour la liste des commandes)")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "/quitter" {
			break
		}
		if err := handleLine(line, sess, tracker, profiles, st); err != nil {
			fmt.Printf("erreur> %v\n", err)
		}
		// Leave room for the typing delay before the next prompt.
		time.Sleep(session.ReplyDelay + 100*time.Millisecond)
	}
	return scanner.Err()
}

// handleLine dispatches one REPL line to the matching session intent.
func handleLine(line string, sess *session.Session, tracker *mood.Tracker, profiles *profile.Service, st store.Store) error {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return nil
	case "/aide":
		printHelp()
		return nil
	case "/choix":
		return sess.PickSuggestion(arg)
	case "/continuer":
		return sess.ContinueExercise()
	case "/arreter":
		return sess.StopExercise()
	case "/gravite":
		return sess.SetSeverity(parseSeverity(arg))
	case "/humeur":
		return recordMood(arg, tracker, st)
	case "/serie":
		days := 7
		if arg == "30" {
			days = 30
		}
		printSeries(tracker, days)
		return nil
	case "/profil":
		return handleProfile(arg, profiles)
	default:
		return sess.SendMessage(line)
	}
}

func parseSeverity(arg string) models.Severity {
	switch strings.ToLower(arg) {
	case "faible", "low":
		return models.SeverityLow
	case "moderee", "modérée", "moderate":
		return models.SeverityModerate
	case "elevee", "élevée", "high":
		return models.SeverityHigh
	default:
		return models.Severity(arg)
	}
}

// recordMood maps the symbol to a value, updates the tracker and persists
// the record.
func recordMood(symbol string, tracker *mood.Tracker, st store.Store) error {
	now := time.Now()
	value := mood.EmojiToValue(symbol)
	tracker.Upsert(now, value)
	if err := st.AddMoodRecord(models.MoodRecord{ID: uuid.NewString(), RecordedAt: now, Value: value}); err != nil {
		return err
	}
	if avg, ok := tracker.Average(now); ok {
		fmt.Printf("humeur> enregistré (%d), moyenne du jour: %.1f\n", value, avg)
	}
	return nil
}

func printSeries(tracker *mood.Tracker, days int) {
	fmt.Printf("humeur> %d derniers jours:\n", days)
	for _, p := range tracker.TimeSeries(days) {
		if p.Value == nil {
			fmt.Printf("  %s  -\n", mood.DateKey(p.Date))
		} else {
			fmt.Printf("  %s  %.1f\n", mood.DateKey(p.Date), *p.Value)
		}
	}
}

// handleProfile shows the stored profile, or saves "name email" arguments.
func handleProfile(arg string, profiles *profile.Service) error {
	if arg == "" {
		p, err := profiles.Load()
		if err != nil {
			return err
		}
		if p == nil {
			fmt.Println("profil> aucun profil enregistré (/profil <nom> <email>)")
			return nil
		}
		fmt.Printf("profil> %s <%s>\n", p.Name, p.Email)
		return nil
	}

	name, email, ok := strings.Cut(arg, " ")
	if !ok {
		return fmt.Errorf("usage: /profil <nom> <email>")
	}
	if !profile.IsValidEmail(email) {
		return fmt.Errorf("%w: %q", models.ErrInvalidEmail, email)
	}
	if err := profiles.Save(models.Profile{Name: name, Email: email}); err != nil {
		return err
	}
	fmt.Println("profil> enregistré")
	return nil
}

func printHelp() {
	fmt.Print(`commandes:
  <texte>             envoyer un message au bot
  /choix <label>      lancer une action guidée (ex: /choix Respiration)
  /continuer          avancer dans l'exercice en cours
  /arreter            terminer l'exercice en cours
  /gravite <niveau>   déclarer la gravité (faible, moderee, elevee)
  /humeur <emoji>     enregistrer l'humeur du moment
  /serie <7|30>       afficher la série d'humeur
  /profil [nom email] afficher ou enregistrer le profil
  /quitter            quitter
`)
}
