package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/holtholcomb/tvstream/internal/config"
	"github.com/holtholcomb/tvstream/internal/protocol"
	"github.com/holtholcomb/tvstream/internal/transport"
	"github.com/holtholcomb/tvstream/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <capture.jsonl>",
	Short: "Summarize a payload capture",
	Long: `Read a capture written by 'tvstream stream --capture-dir' and count the
inbound sub-messages by kind.

Series and study updates are recognised by the session ids of the session
profile, so pass the same --config that was used for the capture.`,
	Example: `  tvstream analyze ./captures/capture-20260101-120000.jsonl`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAnalyze,
}

// kindCount is one line of a capture summary.
type kindCount struct {
	Kind  string
	Count int
}

// captureSummary is what analyze reports for a capture.
type captureSummary struct {
	Inbound     int // inbound payloads
	Outbound    int // outbound payloads
	SubMessages int // inbound sub-messages, empty ones excluded
	ParseErrors int
	Kinds       []kindCount // most frequent first
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}
	profile, err := config.LoadProfile(v.GetString("config"))
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	records, err := transport.ReadCapture(f)
	if err != nil {
		return err
	}

	s := summarize(records, protocol.NewClassifier(profile.Session.IDs))

	result := ui.NewSuccessResult("Capture analyzed",
		ui.Param{Key: "File", Value: args[0]},
		ui.Param{Key: "Inbound payloads", Value: strconv.Itoa(s.Inbound)},
		ui.Param{Key: "Outbound payloads", Value: strconv.Itoa(s.Outbound)},
		ui.Param{Key: "Sub-messages", Value: strconv.Itoa(s.SubMessages)},
	)
	if s.ParseErrors > 0 {
		result.AddDetail("Parse errors", strconv.Itoa(s.ParseErrors))
	}
	for _, kc := range s.Kinds {
		result.AddDetail(kc.Kind, strconv.Itoa(kc.Count))
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Render())
	return nil
}

func summarize(records []transport.Record, classifier *protocol.Classifier) captureSummary {
	var s captureSummary
	counts := make(map[string]int)

	for _, rec := range records {
		if rec.Direction != transport.DirectionInbound {
			s.Outbound++
			continue
		}
		s.Inbound++

		for _, raw := range protocol.SplitEnvelopes(rec.Payload) {
			msg, err := classifier.Classify(raw)
			if err != nil {
				s.ParseErrors++
				continue
			}
			if msg.Kind == protocol.KindEmpty {
				continue
			}
			s.SubMessages++
			counts[msg.Kind.String()]++
		}
	}

	for kind, n := range counts {
		s.Kinds = append(s.Kinds, kindCount{Kind: kind, Count: n})
	}
	sort.Slice(s.Kinds, func(i, j int) bool {
		if s.Kinds[i].Count != s.Kinds[j].Count {
			return s.Kinds[i].Count > s.Kinds[j].Count
		}
		return s.Kinds[i].Kind < s.Kinds[j].Kind
	})
	return s
}
