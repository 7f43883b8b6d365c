// Command c700c encodes and decodes raw 16-bit little-endian mono PCM
// against the .c3 container format at 700 bit/s.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	charmlog "github.com/charmbracelet/log"

	"github.com/voicewire/codec700c/codec"
)

// readFrame fills speech from r one int16 at a time so a short final read
// can be detected and the partially-filled remainder zero-padded, instead of
// silently dropping the trailing partial superframe. It returns the number
// of samples actually read and io.EOF only when zero samples were read.
func readFrame(r io.Reader, speech *[codec.SamplesPerFrame]int16) (int, error) {
	for i := range speech {
		if err := binary.Read(r, binary.LittleEndian, &speech[i]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				for j := i; j < len(speech); j++ {
					speech[j] = 0
				}

				if i == 0 {
					return 0, io.EOF
				}

				return i, nil
			}

			return i, err
		}
	}

	return len(speech), nil
}

var version = "dev"

type encodeCmd struct {
	In  string `arg:"" name:"in" help:"Raw 16-bit LE PCM input file." type:"existingfile"`
	Out string `arg:"" name:"out" help:"Output .c3 container path."`
}

func (c *encodeCmd) Run(cli *cliFlags) error {
	in, err := os.Open(c.In)
	if err != nil {
		return fmt.Errorf("c700c: opening input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("c700c: creating output: %w", err)
	}
	defer out.Close()

	opts := cli.codecOptions()

	cdc, err := codec.New(opts...)
	if err != nil {
		return fmt.Errorf("c700c: initialising codec: %w", err)
	}

	if err := codec.WriteHeader(out, codec.Mode700C); err != nil {
		return err
	}

	var speech [codec.SamplesPerFrame]int16

	frames := 0

	for {
		n, err := readFrame(in, &speech)
		if err != nil {
			if err == io.EOF {
				break
			}

			return fmt.Errorf("c700c: reading PCM frame: %w", err)
		}

		if n < codec.SamplesPerFrame {
			cli.log.Infof("zero-padding final partial frame: %d of %d samples", n, codec.SamplesPerFrame)
		}

		idx, err := cdc.Encode(speech)
		if err != nil {
			return fmt.Errorf("c700c: encoding frame %d: %w", frames, err)
		}

		if err := codec.WriteIndexes(out, idx); err != nil {
			return err
		}

		frames++

		if n < codec.SamplesPerFrame {
			break
		}
	}

	cli.log.Infof("encoded %d frames", frames)

	return nil
}

type decodeCmd struct {
	In  string `arg:"" name:"in" help:".c3 container input file." type:"existingfile"`
	Out string `arg:"" name:"out" help:"Output raw 16-bit LE PCM path."`
}

func (c *decodeCmd) Run(cli *cliFlags) error {
	in, err := os.Open(c.In)
	if err != nil {
		return fmt.Errorf("c700c: opening input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("c700c: creating output: %w", err)
	}
	defer out.Close()

	if _, err := codec.ReadHeader(in); err != nil {
		return err
	}

	opts := cli.codecOptions()

	cdc, err := codec.New(opts...)
	if err != nil {
		return fmt.Errorf("c700c: initialising codec: %w", err)
	}

	frames := 0

	for {
		idx, err := codec.ReadIndexes(in)
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("c700c: reading frame %d: %w", frames, err)
		}

		speech, err := cdc.Decode(idx)
		if err != nil {
			return fmt.Errorf("c700c: decoding frame %d: %w", frames, err)
		}

		if err := binary.Write(out, binary.LittleEndian, speech); err != nil {
			return fmt.Errorf("c700c: writing PCM frame %d: %w", frames, err)
		}

		frames++
	}

	cli.log.Infof("decoded %d frames", frames)

	return nil
}

type versionFlag string

func (versionFlag) Decode(*kong.DecodeContext) error { return nil }
func (versionFlag) IsBool() bool                     { return true }

func (v versionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Fprintln(app.Stdout, vars["version"])
	app.Exit(0)

	return nil
}

type cliFlags struct {
	Version versionFlag `short:"v" name:"version" help:"Show version information." vars:"version"`
	Debug   bool        `short:"d" help:"Enable debug logging to stderr."`

	VoicingThresholdDB *float64 `help:"Override the MBE voicing SNR threshold, in dB."`
	PostFilterMarginDB *float64 `help:"Override the post-filter background-noise margin, in dB."`

	Encode encodeCmd `cmd:"" help:"Encode raw PCM to a .c3 stream."`
	Decode decodeCmd `cmd:"" help:"Decode a .c3 stream to raw PCM."`

	log *charmlog.Logger
}

func (cli *cliFlags) codecOptions() []codec.Option {
	var opts []codec.Option

	opts = append(opts, codec.WithLogger(cli.log))

	if cli.VoicingThresholdDB != nil {
		opts = append(opts, codec.WithVoicingThresholdDB(*cli.VoicingThresholdDB))
	}

	if cli.PostFilterMarginDB != nil {
		opts = append(opts, codec.WithPostFilterMargin(*cli.PostFilterMarginDB))
	}

	return opts
}

func main() {
	cli := &cliFlags{log: charmlog.NewWithOptions(os.Stderr, charmlog.Options{Level: charmlog.WarnLevel})}

	kctx := kong.Parse(cli,
		kong.Name("c700c"),
		kong.Description("700 bit/s sinusoidal speech codec"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if cli.Debug {
		cli.log.SetLevel(charmlog.DebugLevel)
	}

	kctx.FatalIfErrorf(kctx.Run(cli))
}
