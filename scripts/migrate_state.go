//go:build ignore

// migrate_state copies posted state from the JSON file backend into the
// SQLite backend (or back), so a deployment can switch state_backend without
// reposting anything.
//
//	go run scripts/migrate_state.go --from .autopost_state.json --to .autopost_state.db
//	go run scripts/migrate_state.go --from .autopost_state.db --to state.json --dry-run
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/example/autopost/internal/adapters/jsonstate"
	"github.com/example/autopost/internal/adapters/sqlite"
	"github.com/example/autopost/internal/ports/secondary"
)

func main() {
	from := flag.String("from", ".autopost_state.json", "source state (.json or .db)")
	to := flag.String("to", ".autopost_state.db", "target state (.json or .db)")
	dryRun := flag.Bool("dry-run", false, "Preview migration without executing")
	force := flag.Bool("force", false, "Overwrite a non-empty target")
	flag.Parse()

	ctx := context.Background()

	src, closeSrc, err := openStore(*from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *from, err)
		os.Exit(1)
	}
	defer closeSrc()

	state, err := src.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", *from, err)
		os.Exit(1)
	}
	fmt.Printf("Found %d posted items in %s\n", state.Len(), *from)

	if *dryRun {
		for _, r := range state.Records() {
			fmt.Printf("  %s  %s  %s\n", r.PostedAt.Format("2006-01-02T15:04:05Z07:00"), r.ItemID, r.PlatformPostID)
		}
		fmt.Println("\n[DRY RUN] No changes made.")
		return
	}

	dst, closeDst, err := openStore(*to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *to, err)
		os.Exit(1)
	}
	defer closeDst()

	existing, err := dst.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", *to, err)
		os.Exit(1)
	}
	if existing.Len() > 0 && !*force {
		fmt.Fprintf(os.Stderr, "%s already has %d records; use --force to overwrite\n", *to, existing.Len())
		os.Exit(1)
	}

	if err := dst.Save(ctx, state); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving %s: %v\n", *to, err)
		os.Exit(1)
	}
	fmt.Printf("Migrated %d records to %s\n", state.Len(), *to)
}

func openStore(path string) (secondary.StateStore, func(), error) {
	if strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite") {
		repo, err := sqlite.OpenStateStore(path)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	}
	return jsonstate.NewStore(path), func() {}, nil
}
