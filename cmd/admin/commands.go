package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Domenick1991/skybooking/config"
	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/internal/repository"
	"github.com/Domenick1991/skybooking/internal/service/orders"
	"github.com/Domenick1991/skybooking/internal/service/reference"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	return config.LoadConfig(path)
}

func seedSeatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-seats",
		Short: "Create airplane types and their seat grids",
		Long: `Create the default airplane types and their full seat grids.
Existing seats are kept, so the command is safe to run repeatedly.
Use --type, --rows and --letters to seed a single custom layout instead.`,
		RunE: runSeedSeats,
	}

	cmd.Flags().String("type", "", "Airplane type name for a custom layout")
	cmd.Flags().Int("rows", 0, "Number of rows for a custom layout")
	cmd.Flags().StringSlice("letters", []string{"A", "B", "C", "D", "E", "F"}, "Seat letters per row")
	cmd.Flags().String("class", string(domain.SeatClassEconomy), "Seat class (ECONOMY, BUSINESS, FIRST)")

	return cmd
}

func runSeedSeats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	blueprints, err := blueprintsFromFlags(cmd)
	if err != nil {
		return err
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	svc := reference.NewReferenceService(repository.NewReferenceRepository(db), log)
	created, err := svc.SeedSeats(cmd.Context(), blueprints)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d airplane type(s), %d new seat(s)\n", len(blueprints), created)
	return nil
}

func blueprintsFromFlags(cmd *cobra.Command) ([]domain.SeatBlueprint, error) {
	typeName, _ := cmd.Flags().GetString("type")
	if typeName == "" {
		return domain.DefaultSeatBlueprints, nil
	}
	rows, _ := cmd.Flags().GetInt("rows")
	letters, _ := cmd.Flags().GetStringSlice("letters")
	class, _ := cmd.Flags().GetString("class")

	switch domain.SeatClass(class) {
	case domain.SeatClassEconomy, domain.SeatClassBusiness, domain.SeatClassFirst:
	default:
		return nil, fmt.Errorf("unknown seat class %q", class)
	}
	if rows <= 0 {
		return nil, fmt.Errorf("--rows must be positive for a custom layout")
	}
	return []domain.SeatBlueprint{{TypeName: typeName, Rows: rows, Letters: letters, Class: domain.SeatClass(class)}}, nil
}

func staleOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stale-orders",
		Short: "List PENDING orders whose checkout was abandoned",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logger.NewLogger(cfg.Log.Level)
			defer log.Sync()

			olderThan, _ := cmd.Flags().GetDuration("older-than")
			if olderThan <= 0 {
				olderThan = time.Duration(cfg.Booking.CheckoutTTLMinutes) * time.Minute
			}

			pool, err := pgxpool.New(cmd.Context(), cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			reporter := orders.NewStaleReporter(repository.NewOrderRepository(pool), olderThan, nil, log)
			stale, err := reporter.Report(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, o := range stale {
				fmt.Fprintf(out, "order %d\tuser %d\tcreated %s\n", o.ID, o.UserID, o.CreatedAt.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "%d stale order(s)\n", len(stale))
			return nil
		},
	}

	cmd.Flags().Duration("older-than", 0, "Age threshold (defaults to the checkout window)")

	return cmd
}
