package versionupdate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// GradleFile is the build script updated for android projects.
const GradleFile = "app/build.gradle"

// Product flavor sections in the gradle file.
const (
	FlavorDev  = "DEV"
	FlavorQA   = "QA"
	FlavorUAT  = "UAT"
	FlavorProd = "PROD"
)

// Snapshot is the versionName given to DEV and QA builds.
const Snapshot = "SNAPSHOT"

// Gradle rewrites versionCode and versionName inside a productFlavors block.
type Gradle struct {
	path string
}

// NewGradle returns an updater for root/app/build.gradle.
func NewGradle(root string) *Gradle {
	return &Gradle{path: filepath.Join(root, GradleFile)}
}

// Supports reports whether the gradle file exists.
func (g *Gradle) Supports() bool {
	_, err := os.Stat(g.path)
	return err == nil
}

// UpdateDev stamps a development build.
func (g *Gradle) UpdateDev(build string) error {
	return g.updateFlavor(FlavorDev, build, Snapshot)
}

// UpdateQA stamps a QA delivery build.
func (g *Gradle) UpdateQA(build string) error {
	return g.updateFlavor(FlavorQA, build, Snapshot)
}

// UpdateProd names the release, reusing the QA versionCode.
func (g *Gradle) UpdateProd(version string) error {
	code, err := g.QAVersionCode()
	if err != nil {
		return err
	}
	return g.updateFlavor(FlavorProd, code, version)
}

// UpdateUAT names a UAT build, reusing the QA versionCode.
func (g *Gradle) UpdateUAT(version string) error {
	code, err := g.QAVersionCode()
	if err != nil {
		return err
	}
	return g.updateFlavor(FlavorUAT, code, version)
}

// QAVersionCode returns the versionCode of the QA flavor.
func (g *Gradle) QAVersionCode() (string, error) {
	content, err := g.read()
	if err != nil {
		return "", err
	}
	m := flavorPattern(FlavorQA, "Code").FindStringSubmatch(content)
	if m == nil {
		return "", fmt.Errorf("%s: no versionCode in %s flavor", g.path, FlavorQA)
	}
	return m[1], nil
}

func (g *Gradle) read() (string, error) {
	data, err := os.ReadFile(g.path) // #nosec G304 -- fixed path under the repository root
	if err != nil {
		return "", fmt.Errorf("read %s: %w", g.path, err)
	}
	return string(data), nil
}

func (g *Gradle) updateFlavor(flavor, code, name string) error {
	content, err := g.read()
	if err != nil {
		return err
	}
	updated, ok := replaceFlavorValue(content, flavor, "Code", code)
	if !ok {
		return fmt.Errorf("%s: no versionCode in %s flavor", g.path, flavor)
	}
	updated, ok = replaceFlavorValue(updated, flavor, "Name", `"`+name+`"`)
	if !ok {
		return fmt.Errorf("%s: no versionName in %s flavor", g.path, flavor)
	}
	info, err := os.Stat(g.path)
	if err != nil {
		return err
	}
	return os.WriteFile(g.path, []byte(updated), info.Mode().Perm())
}

// flavorPattern matches the first version<kind> value after the flavor name
// inside productFlavors. Group 1 is the value.
func flavorPattern(flavor, kind string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)productFlavors.*?` + regexp.QuoteMeta(flavor) + `.*?version` + kind + `[ \t]*=?[ \t]*(\S+)`)
}

func replaceFlavorValue(content, flavor, kind, value string) (string, bool) {
	loc := flavorPattern(flavor, kind).FindStringSubmatchIndex(content)
	if loc == nil {
		return content, false
	}
	var b strings.Builder
	b.WriteString(content[:loc[2]])
	b.WriteString(value)
	b.WriteString(content[loc[3]:])
	return b.String(), true
}
