// Command corpus builds and normalizes bilingual Tatoeba corpora.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

const version = "0.1.0"

// CLI defines the command-line interface for corpus.
var CLI struct {
	Globals

	Fetch     FetchCmd     `cmd:"" help:"Download Tatoeba exports, pair, split and normalize"`
	Split     SplitCmd     `cmd:"" help:"Split and normalize an existing sentence-pairs file"`
	Fix       FixCmd       `cmd:"" help:"Normalize a one-sentence-per-line file"`
	Check     CheckCmd     `cmd:"" help:"Report non-standard characters"`
	Stopwords StopwordsCmd `cmd:"" help:"Build a stopword list from a text file"`
	Rules     RulesCmd     `cmd:"" help:"Print the active substitution table"`
	Verify    VerifyCmd    `cmd:"" help:"Verify output files against their manifest"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx := kong.Parse(&CLI,
		kong.Name("corpus"),
		kong.Description("Tatoeba corpus splitter and character normalizer"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&CLI.Globals)
	kctx.FatalIfErrorf(err)
}
