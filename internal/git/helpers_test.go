package git

import (
	"strings"

	"github.com/v2gpti/gpti/internal/shell"
	"github.com/v2gpti/gpti/internal/shell/shelltest"
)

// fakeRepo simulates the pieces of git state the workflow touches:
// the checked-out branch and the config file.
type fakeRepo struct {
	branch   string
	branches map[string]bool
	config   map[string]string
	revs     map[string]string // rev-parse / merge-base answers
	*shelltest.Fake
}

func newFakeRepo(branch string) *fakeRepo {
	r := &fakeRepo{
		branch:   branch,
		branches: map[string]bool{branch: true},
		config:   map[string]string{},
		revs:     map[string]string{},
		Fake:     shelltest.New(),
	}
	r.Fake.Handler = r.handle
	return r
}

func (r *fakeRepo) handle(c shell.Command) (shelltest.Response, bool) {
	if c.Name != "git" || len(c.Args) == 0 {
		return shelltest.Response{}, false
	}
	args := c.Args
	switch args[0] {
	case "branch":
		if len(args) == 1 {
			var b strings.Builder
			for name := range r.branches {
				if name == r.branch {
					b.WriteString("* " + name + "\n")
				} else {
					b.WriteString("  " + name + "\n")
				}
			}
			return shelltest.Response{Output: b.String()}, true
		}
		if args[len(args)-2] == "-D" {
			delete(r.branches, args[len(args)-1])
		}
		return shelltest.Response{}, true
	case "checkout":
		target := args[len(args)-1]
		for _, a := range args {
			if a == "-b" {
				r.branches[target] = true
			}
		}
		if !r.branches[target] {
			r.branches[target] = true
		}
		r.branch = target
		return shelltest.Response{}, true
	case "config":
		rest := args[1:]
		if len(rest) > 0 && strings.HasPrefix(rest[0], "--") {
			rest = rest[1:]
		}
		switch len(rest) {
		case 1:
			v, ok := r.config[rest[0]]
			if !ok {
				return shelltest.Response{Fail: true}, true
			}
			return shelltest.Response{Output: v + "\n"}, true
		case 2:
			r.config[rest[0]] = rest[1]
			return shelltest.Response{}, true
		}
	case "rev-parse", "merge-base":
		key := strings.Join(args, " ")
		if v, ok := r.revs[key]; ok {
			return shelltest.Response{Output: v}, true
		}
		return shelltest.Response{Output: "0000000\n"}, true
	}
	return shelltest.Response{}, false
}
