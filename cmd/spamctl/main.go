// spamctl is a small command line front end for the spamd client library.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/lmittmann/tint"

	spamd "github.com/spamd/spamdclient-go"
	"github.com/spamd/spamdclient-go/protocol"
)

var version = "dev"

type CLI struct {
	Addr     string  `short:"a" default:"localhost:783" help:"Daemon address (host:port or unix socket path)"`
	User     string  `short:"u" help:"Account name for per-user filter rules"`
	Timeout  float64 `short:"t" default:"30" help:"Exchange timeout in seconds"`
	Compress bool    `short:"z" help:"Compress message bodies with zlib"`
	Verbose  bool    `short:"v" help:"Enable debug logging"`

	Check   CheckCmd   `cmd:"" help:"Check whether a message is spam"`
	Report  ReportCmd  `cmd:"" help:"Show the daemon's detailed rule report"`
	Symbols SymbolsCmd `cmd:"" help:"List the rules a message matched"`
	Ping    PingCmd    `cmd:"" help:"Health-check the daemon"`
	Learn   LearnCmd   `cmd:"" help:"Train the filter with a message"`

	Version kong.VersionFlag `help:"Show version"`
}

func (c *CLI) config() *spamd.Config {
	cfg := spamd.NewConfig(c.Addr).WithTimeout(c.Timeout).WithCompress(c.Compress)
	if c.User != "" {
		cfg.WithUser(c.User)
	}
	if c.Verbose {
		cfg.WithLogger(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})))
	}
	return cfg
}

// readMessage reads the message from a file argument, or stdin for "-"
func readMessage(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printVerdict(isSpam bool, score, threshold float64) {
	verdict := color.GreenString("HAM")
	if isSpam {
		verdict = color.RedString("SPAM")
	}
	fmt.Printf("%s (%.1f / %.1f)\n", verdict, score, threshold)
}

type CheckCmd struct {
	Message string `arg:"" optional:"" help:"Message file, or - for stdin"`
}

func (c *CheckCmd) Run(cli *CLI) error {
	message, err := readMessage(c.Message)
	if err != nil {
		return err
	}
	reply, err := spamd.Check(context.Background(), cli.config(), message)
	if err != nil {
		return err
	}
	printVerdict(reply.IsSpam, reply.Score, reply.Threshold)
	return nil
}

type ReportCmd struct {
	Message string `arg:"" optional:"" help:"Message file, or - for stdin"`
}

func (c *ReportCmd) Run(cli *CLI) error {
	message, err := readMessage(c.Message)
	if err != nil {
		return err
	}
	reply, err := spamd.Report(context.Background(), cli.config(), message)
	if err != nil {
		return err
	}
	printVerdict(reply.IsSpam, reply.Score, reply.Threshold)
	for _, hit := range reply.Hits {
		fmt.Printf("%6.1f %-24s %s\n", hit.Score, hit.Rule, hit.Description)
	}
	return nil
}

type SymbolsCmd struct {
	Message string `arg:"" optional:"" help:"Message file, or - for stdin"`
}

func (c *SymbolsCmd) Run(cli *CLI) error {
	message, err := readMessage(c.Message)
	if err != nil {
		return err
	}
	client, err := spamd.NewClient(cli.config())
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.Symbols(context.Background(), message)
	if err != nil {
		return err
	}
	printVerdict(reply.IsSpam, reply.Score, reply.Threshold)
	for _, symbol := range reply.Symbols {
		fmt.Println(symbol)
	}
	return nil
}

type PingCmd struct{}

func (c *PingCmd) Run(cli *CLI) error {
	reply, err := spamd.Ping(context.Background(), cli.config())
	if err != nil {
		return err
	}
	fmt.Printf("SPAMD/%s %s\n", reply.Version, reply.Message)
	return nil
}

type LearnCmd struct {
	Class   string `arg:"" enum:"spam,ham" help:"Message class: spam or ham"`
	Message string `arg:"" optional:"" help:"Message file, or - for stdin"`
	Forget  bool   `help:"Remove the message from the database instead"`
}

func (c *LearnCmd) Run(cli *CLI) error {
	message, err := readMessage(c.Message)
	if err != nil {
		return err
	}
	client, err := spamd.NewClient(cli.config())
	if err != nil {
		return err
	}
	defer client.Close()

	class := protocol.MessageClass(c.Class)
	var reply *spamd.TellReply
	if c.Forget {
		reply, err = client.Forget(context.Background(), message, class)
	} else {
		reply, err = client.Learn(context.Background(), message, class)
	}
	if err != nil {
		return err
	}
	switch {
	case c.Forget && reply.DidRemove.Local:
		fmt.Println("forgotten")
	case !c.Forget && reply.DidSet.Local:
		fmt.Println("learned")
	default:
		fmt.Println("no change")
	}
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("spamctl"),
		kong.Description("Talk to a SpamAssassin spamd daemon."),
		kong.Vars{"version": version},
	)
	if err := ctx.Run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "spamctl: %v\n", err)
		os.Exit(1)
	}
}
