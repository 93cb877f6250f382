package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/zenpal-audio/internal/alignment"
	"github.com/maauso/zenpal-audio/internal/audio"
	"github.com/maauso/zenpal-audio/internal/bootstrap"
	"github.com/maauso/zenpal-audio/internal/config"
	"github.com/maauso/zenpal-audio/internal/job"
	"github.com/maauso/zenpal-audio/internal/pacing"
)

var errNoTarget = errors.New("--target must be greater than zero")

func newWordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Print the script length for a meditation duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			duration, _ := cmd.Flags().GetFloat64("duration")
			name, _ := cmd.Flags().GetString("profile")

			profile, err := pacing.ParseProfile(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile=%s wpm=%g words=%d\n",
				profile, profile.WordsPerMinute(), pacing.TargetWordCount(duration, profile))
			return nil
		},
	}
	cmd.Flags().Float64("duration", 300, "Meditation duration in seconds")
	cmd.Flags().String("profile", "sparse", "Word density profile (sparse or dense)")
	return cmd
}

func newMarkupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markup <script|->",
		Short: "Insert legacy break tags into a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, _ := cmd.Flags().GetFloat64("duration")
			buffer, _ := cmd.Flags().GetFloat64("safety-buffer")
			asJSON, _ := cmd.Flags().GetBool("json")

			text, err := readInput(cmd, args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}

			cfg := pacing.DefaultConfig()
			cfg.SilenceSafetyBuffer = max(buffer, 1)
			res := cfg.Markup(string(text), duration)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Markup)
			fmt.Fprintf(cmd.ErrOrStderr(), "atoms=%d words=%d speech=%.1fs silence=%.1fs total=%.1fs\n",
				res.AtomCount, res.TotalWords, res.EstimatedSpeechSeconds, res.TotalSilenceAdded, res.EstimatedTotalSeconds)
			return nil
		},
	}
	cmd.Flags().Float64("duration", 300, "Target duration in seconds")
	cmd.Flags().Float64("safety-buffer", pacing.SilenceSafetyBuffer, "Silence budget multiplier (>= 1)")
	cmd.Flags().Bool("json", false, "Print the full markup diagnostics as JSON")
	return cmd
}

func newPaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pace",
		Short: "Stretch synthesized speech to a target duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, _ := cmd.Flags().GetString("in")
			alignPath, _ := cmd.Flags().GetString("alignment")
			target, _ := cmd.Flags().GetFloat64("target")
			out, _ := cmd.Flags().GetString("out")
			if target <= 0 {
				return errNoTarget
			}

			data, err := readInput(cmd, in)
			if err != nil {
				return fmt.Errorf("read audio: %w", err)
			}

			var input audio.Input = audio.Unaligned{Data: data}
			if alignPath != "" {
				words, err := readAlignment(alignPath)
				if err != nil {
					return err
				}
				input = audio.Aligned{Data: data, Words: words}
			}

			res := audio.NewDefaultPacer(commandLogger(cmd)).Pace(input, target)
			if err := os.WriteFile(out, res.Data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return report(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().String("in", "-", "Input WAV or MP3 file")
	cmd.Flags().String("alignment", "", "Character alignment JSON for sentence-boundary pacing")
	cmd.Flags().Float64("target", 0, "Target duration in seconds")
	cmd.Flags().String("out", "paced.wav", "Output WAV file")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newConcatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concat <clip>...",
		Short: "Join clips with even silent gaps to reach a target duration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetFloat64("target")
			out, _ := cmd.Flags().GetString("out")
			minGap, _ := cmd.Flags().GetFloat64("min-gap")
			if target <= 0 {
				return errNoTarget
			}

			clips := make([][]byte, 0, len(args))
			for _, name := range args {
				data, err := os.ReadFile(name)
				if err != nil {
					return fmt.Errorf("read clip: %w", err)
				}
				clips = append(clips, data)
			}

			res, err := audio.Concatenate(clips, target, audio.ConcatOpts{MinGapTotal: minGap})
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, res.Data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return report(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Float64("target", 0, "Target duration in seconds")
	cmd.Flags().String("out", "joined.wav", "Output WAV file")
	cmd.Flags().Float64("min-gap", audio.DefaultConcatOpts().MinGapTotal, "Least total gap silence in seconds")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the full meditation pipeline with the configured collaborators",
		Long: "Generate writes a script, synthesizes it and paces the speech. " +
			"Collaborators are configured from the environment (or .env) exactly as for the server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			duration, _ := cmd.Flags().GetFloat64("duration")
			profile, _ := cmd.Flags().GetString("profile")
			theme, _ := cmd.Flags().GetString("theme")
			legacy, _ := cmd.Flags().GetBool("legacy")
			intro, _ := cmd.Flags().GetString("intro")
			outro, _ := cmd.Flags().GetString("outro")
			out, _ := cmd.Flags().GetString("out")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			defer func() { _ = cfg.Close() }()

			deps, err := bootstrap.NewDependencies(cfg, commandLogger(cmd))
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Minute)
			defer cancel()

			done, err := deps.MeditationService.Process(ctx, job.Request{
				DurationSeconds: duration,
				Profile:         pacing.Profile(profile),
				Theme:           theme,
				Legacy:          legacy,
				IntroClip:       intro,
				OutroClip:       outro,
			})
			if err != nil {
				return err
			}

			rc, _, err := deps.MeditationService.LoadAudio(ctx, done.ID)
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			if _, err := io.Copy(f, rc); err != nil {
				_ = f.Close()
				return fmt.Errorf("write output: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			r := done.Result
			fmt.Fprintf(cmd.OutOrStdout(), "job=%s strategy=%s words=%d speech=%.2fs silence=%.2fs duration=%.2fs degraded=%t out=%s\n",
				done.ID, r.Strategy, r.WordCount, r.SpeechSeconds, r.SilenceSeconds, r.DurationSeconds, r.Degraded, out)
			return nil
		},
	}
	cmd.Flags().Float64("duration", 300, "Meditation duration in seconds")
	cmd.Flags().String("profile", "", "Word density profile (defaults to DEFAULT_PROFILE)")
	cmd.Flags().String("theme", "", "Meditation theme")
	cmd.Flags().Bool("legacy", false, "Use break markup instead of waveform pacing")
	cmd.Flags().String("intro", "", "Intro clip name in the assets store")
	cmd.Flags().String("outro", "", "Outro clip name in the assets store")
	cmd.Flags().String("out", "meditation.wav", "Output file")
	return cmd
}

// readAlignment loads a character alignment, either bare or wrapped in the
// synthesis response object under "alignment".
func readAlignment(path string) ([]alignment.Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alignment: %w", err)
	}

	var wrapped struct {
		Alignment *alignment.CharacterAlignment `json:"alignment"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse alignment: %w", err)
	}
	ca := wrapped.Alignment
	if ca == nil {
		ca = &alignment.CharacterAlignment{}
		if err := json.Unmarshal(data, ca); err != nil {
			return nil, fmt.Errorf("parse alignment: %w", err)
		}
	}
	if err := ca.Validate(); err != nil {
		return nil, err
	}
	return alignment.Normalize(*ca), nil
}

func report(w io.Writer, res audio.Output) error {
	if res.Degraded {
		fmt.Fprintf(w, "strategy=%s degraded=true (input could not be decoded, written unchanged)\n", res.Strategy)
		return nil
	}
	speech, silence := 0.0, 0.0
	if res.Plan != nil {
		speech, silence = res.Plan.SpeechDuration, res.Plan.TotalSilence
	}
	fmt.Fprintf(w, "strategy=%s duration=%.2fs speech=%.2fs silence=%.2fs\n",
		res.Strategy, res.Duration, speech, silence)
	return nil
}
