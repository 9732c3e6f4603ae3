package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/qri-io/deltastate"
	"github.com/qri-io/deltastate/internal/snapshot"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newWatchCmd() *cobra.Command {
	var (
		listens  listenFlag
		fallback bool
	)

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Watch a snapshot file and report changes to pattern listeners",
		Long: `Watch loads FILE and reloads it every time it is written. Each reload is
diffed against the previous snapshot and the resulting changes are delivered
to the listeners given with --listen, as PATTERN or PATTERN@OP:

  deltastate watch state.json --listen 'players/:id@add' --listen 'players/:id/:axis'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := getLogger(cmd)
			s, err := newSession(args[0], logger)
			if err != nil {
				return err
			}
			for _, l := range listens {
				if err := s.listen(l.pattern, l.op); err != nil {
					return err
				}
			}
			if fallback {
				s.container.ListenFallback(s.report("unmatched change"))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return s.watch(ctx)
		},
	}

	cmd.Flags().VarP(&listens, "listen", "l", "Listener `PATTERN[@OP]`, may be repeated")
	cmd.Flags().BoolVar(&fallback, "fallback", true, "Report changes no listener matched")
	return cmd
}

type listenSpec struct {
	pattern string
	op      deltastate.Operation
}

// listenFlag collects repeated --listen values, rejecting bad operations
// while flags are parsed
type listenFlag []listenSpec

var _ pflag.Value = (*listenFlag)(nil)

func (f *listenFlag) String() string {
	strs := make([]string, len(*f))
	for i, l := range *f {
		strs[i] = l.pattern
		if l.op != deltastate.OpUnspecified {
			strs[i] += "@" + l.op.String()
		}
	}
	return "[" + strings.Join(strs, ",") + "]"
}

func (f *listenFlag) Set(s string) error {
	pattern, op, err := parseListen(s)
	if err != nil {
		return err
	}
	*f = append(*f, listenSpec{pattern: pattern, op: op})
	return nil
}

func (f *listenFlag) Type() string { return "listener" }

// parseListen splits a PATTERN[@OP] flag value
func parseListen(s string) (string, deltastate.Operation, error) {
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return s, deltastate.OpUnspecified, nil
	}
	op, err := deltastate.ParseOperation(s[i+1:])
	if err != nil {
		return "", deltastate.OpUnspecified, fmt.Errorf("listener %q: %w", s, err)
	}
	return s[:i], op, nil
}

type session struct {
	path      string
	container *deltastate.Container
	logger    *logrus.Entry
}

func newSession(path string, logger *logrus.Logger) (*session, error) {
	data, err := snapshot.Load(path)
	if err != nil {
		return nil, err
	}
	entry := logger.WithField("file", filepath.Base(path))
	return &session{
		path:      path,
		container: deltastate.New(data, deltastate.OptionLogger(entry)),
		logger:    entry,
	}, nil
}

func (s *session) listen(pattern string, op deltastate.Operation) error {
	l, err := s.container.Listen(pattern, op, s.report("change"))
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"pattern": l.Pattern(), "op": l.Operation().String()}).Info("listening")
	return nil
}

func (s *session) report(msg string) deltastate.Callback {
	return func(ch deltastate.Change) {
		fields := logrus.Fields{
			"op":   ch.Op.String(),
			"path": strings.Join(ch.Path, deltastate.PatternSeparator),
		}
		for k, v := range ch.Vars {
			fields["var."+k] = v
		}
		if ch.Op != deltastate.OpRemove {
			fields["value"] = ch.Value
		}
		s.logger.WithFields(fields).Info(msg)
	}
}

// reload reads the file again and pushes it into the container. a file
// that fails to parse leaves the previous snapshot in place
func (s *session) reload() (deltastate.Patches, error) {
	data, err := snapshot.Load(s.path)
	if err != nil {
		return nil, err
	}
	return s.container.Set(data), nil
}

// watch blocks until ctx is cancelled. the parent directory is watched
// since editors often replace a file rather than write to it
func (s *session) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			patches, err := s.reload()
			if err != nil {
				s.logger.WithError(err).Warn("reload failed")
				continue
			}
			s.logger.WithField("patches", len(patches)).Debug("reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Errorf("watcher error: %v", err)
		case <-ctx.Done():
			return nil
		}
	}
}
