// Package versionupdate stamps build and version numbers into platform
// project files before gpti commits them.
package versionupdate

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/v2gpti/gpti/internal/shell"
)

// Platform names, matching the project file's platform-name values.
const (
	IOS     = "ios"
	Android = "android"
	RubyGem = "ruby-gem"
)

// Stage is where a build number is headed.
type Stage string

const (
	StageDev Stage = FlavorDev
	StageQA  Stage = FlavorQA
)

// BuildNumber formats t as yyMMdd_HHmm in UTC. iOS build numbers use '-'
// as the separator because agvtool rejects '_'.
func BuildNumber(t time.Time, platform string) string {
	sep := "_"
	if strings.EqualFold(platform, IOS) {
		sep = "-"
	}
	return t.UTC().Format("060102" + sep + "1504")
}

// Options describe the project being stamped.
type Options struct {
	Root     string
	Platform string
	// XcodeProjectPath is the directory holding the .xcodeproj, relative to
	// Root. Empty means search for one.
	XcodeProjectPath string
	// SpecPath is a podspec (iOS) relative to Root.
	SpecPath string
	// Command, when set, replaces the built-in platform handling. The
	// placeholders {version}, {build} and {stage} are substituted per word.
	Command string
}

// Stamper updates platform files and runs platform tooling.
type Stamper struct {
	sh   shell.Executor
	opts Options
	out  io.Writer
	goos string
}

// New returns a Stamper. Output from platform tools is written to out.
func New(sh shell.Executor, opts Options, out io.Writer) *Stamper {
	if out == nil {
		out = io.Discard
	}
	opts.Platform = strings.ToLower(strings.TrimSpace(opts.Platform))
	return &Stamper{sh: sh, opts: opts, out: out, goos: runtime.GOOS}
}

func (s *Stamper) onMac() bool {
	return s.goos == "darwin"
}

// BuildNumber formats t for this project. The iOS separator only applies
// where agvtool runs.
func (s *Stamper) BuildNumber(t time.Time) string {
	platform := s.opts.Platform
	if platform == IOS && !s.onMac() {
		platform = ""
	}
	return BuildNumber(t, platform)
}

// StampBuild records a build number for a DEV build (finish) or a QA
// delivery (deliver).
func (s *Stamper) StampBuild(ctx context.Context, stage Stage, build string) error {
	if s.opts.Command != "" {
		return s.runCommand(ctx, map[string]string{"{build}": build, "{version}": build, "{stage}": string(stage)})
	}
	switch s.opts.Platform {
	case IOS:
		if !s.onMac() {
			return nil
		}
		dir, err := s.xcodeDir()
		if err != nil || dir == "" {
			return err
		}
		s.print(s.sh.ExecAllowFailure(ctx, shell.Command{Name: "xcrun", Args: []string{"agvtool", "new-version", "-all", build}}.In(dir)))
		out, err := s.sh.Exec(ctx, shell.Command{Name: "xcrun", Args: []string{"agvtool", "new-marketing-version", Snapshot}}.In(dir))
		s.print(out)
		return err
	case Android:
		g := NewGradle(s.opts.Root)
		if !g.Supports() {
			return nil
		}
		if stage == StageQA {
			return g.UpdateQA(build)
		}
		return g.UpdateDev(build)
	}
	return nil
}

// StampVersion records a release version.
func (s *Stamper) StampVersion(ctx context.Context, version string) error {
	if s.opts.Command != "" {
		return s.runCommand(ctx, map[string]string{"{build}": version, "{version}": version, "{stage}": FlavorProd})
	}
	switch s.opts.Platform {
	case IOS:
		if s.onMac() {
			dir, err := s.xcodeDir()
			if err != nil {
				return err
			}
			if dir != "" {
				out, err := s.sh.Exec(ctx, shell.Command{Name: "xcrun", Args: []string{"agvtool", "new-marketing-version", version}}.In(dir))
				s.print(out)
				if err != nil {
					return err
				}
			}
		}
		if s.opts.SpecPath != "" {
			if _, err := SetSpecVersion(filepath.Join(s.opts.Root, s.opts.SpecPath), version); err != nil {
				return err
			}
		}
	case Android:
		g := NewGradle(s.opts.Root)
		if g.Supports() {
			return g.UpdateProd(version)
		}
	case RubyGem:
		spec, err := FindGemspec(s.opts.Root)
		if err != nil || spec == "" {
			return err
		}
		_, err = SetSpecVersion(spec, version)
		return err
	}
	return nil
}

// PublishesSpec reports whether a release pushes the podspec to a spec repo.
func (s *Stamper) PublishesSpec() bool {
	return s.opts.Platform == IOS && s.opts.SpecPath != ""
}

// PublishSpec pushes the podspec to the CocoaPods spec repo named repo. The
// release tag should be checked out first.
func (s *Stamper) PublishSpec(ctx context.Context, repo string) error {
	out, err := s.sh.Exec(ctx, shell.Command{Name: "pod", Args: []string{"repo", "push", repo, s.opts.SpecPath}}.In(s.opts.Root))
	s.print(out)
	return err
}

func (s *Stamper) runCommand(ctx context.Context, vars map[string]string) error {
	cmd, err := shell.Parse(s.opts.Command)
	if err != nil {
		return err
	}
	cmd.Name = substitute(cmd.Name, vars)
	for i, a := range cmd.Args {
		cmd.Args[i] = substitute(a, vars)
	}
	cmd.Dir = s.opts.Root
	out, err := s.sh.Exec(ctx, cmd)
	s.print(out)
	return err
}

func substitute(word string, vars map[string]string) string {
	for k, v := range vars {
		word = strings.ReplaceAll(word, k, v)
	}
	return word
}

func (s *Stamper) print(out string) {
	if out = strings.TrimSpace(out); out != "" {
		fmt.Fprintln(s.out, out)
	}
}

// xcodeDir returns the directory holding the Xcode project, or "" when
// the repository has none.
func (s *Stamper) xcodeDir() (string, error) {
	if s.opts.XcodeProjectPath != "" {
		return filepath.Join(s.opts.Root, s.opts.XcodeProjectPath), nil
	}
	return FindXcodeProject(s.opts.Root)
}

// FindXcodeProject returns the parent directory of the first *.xcodeproj
// under root, skipping .git and Pods.
func FindXcodeProject(root string) (string, error) {
	found := ""
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case ".git", "Pods":
			return filepath.SkipDir
		}
		if strings.HasSuffix(d.Name(), ".xcodeproj") {
			found = filepath.Dir(path)
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search for xcode project: %w", err)
	}
	return found, nil
}
