package versionupdate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v2gpti/gpti/internal/shell/shelltest"
)

const buildGradle = `android {
    compileSdkVersion 33

    productFlavors {
        DEV {
            applicationIdSuffix ".dev"
            versionCode 1
            versionName "SNAPSHOT"
        }
        QA {
            versionCode = 240101_0900
            versionName "SNAPSHOT"
        }
        PROD {
            versionCode 1
            versionName "1.0.0"
        }
    }
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestBuildNumber(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "240305_1307", BuildNumber(ts, "android"))
	assert.Equal(t, "240305-1307", BuildNumber(ts, "iOS"))

	s := New(shelltest.New(), Options{Platform: "ios"}, nil)
	s.goos = "linux"
	assert.Equal(t, "240305_1307", s.BuildNumber(ts))
	s.goos = "darwin"
	assert.Equal(t, "240305-1307", s.BuildNumber(ts))
}

func TestGradleUpdateDev(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, GradleFile), buildGradle)

	g := NewGradle(root)
	require.True(t, g.Supports())
	require.NoError(t, g.UpdateDev("240305_1307"))

	got := readFile(t, filepath.Join(root, GradleFile))
	assert.Contains(t, got, "versionCode 240305_1307\n            versionName \"SNAPSHOT\"")
	assert.Contains(t, got, "versionCode = 240101_0900", "QA untouched")
	assert.Contains(t, got, `versionName "1.0.0"`, "PROD untouched")
}

func TestGradleUpdateQAAndProd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, GradleFile), buildGradle)
	g := NewGradle(root)

	require.NoError(t, g.UpdateQA("240310_1200"))
	code, err := g.QAVersionCode()
	require.NoError(t, err)
	assert.Equal(t, "240310_1200", code)

	require.NoError(t, g.UpdateProd("1.1.0"))
	got := readFile(t, filepath.Join(root, GradleFile))
	assert.Contains(t, got, "PROD {\n            versionCode 240310_1200\n            versionName \"1.1.0\"")
}

func TestGradleMissingFlavor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, GradleFile), "android {\n productFlavors {\n DEV {\n }\n }\n}\n")
	err := NewGradle(root).UpdateDev("1")
	assert.Error(t, err)
	assert.False(t, NewGradle(t.TempDir()).Supports())
}

func TestSetSpecVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.gemspec")
	writeFile(t, path, `Gem::Specification.new do |s|
  s.name = 'demo'
  s.version = "0.9.1"
  s.required_ruby_version = '>= 2.7'
end
`)
	changed, err := SetSpecVersion(path, "1.0.0")
	require.NoError(t, err)
	assert.True(t, changed)

	got := readFile(t, path)
	assert.Contains(t, got, "s.version     = '1.0.0'\n")
	assert.Contains(t, got, "s.required_ruby_version = '>= 2.7'")

	changed, err = SetSpecVersion(path, "1.0.0")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFindGemspec(t *testing.T) {
	root := t.TempDir()
	got, err := FindGemspec(root)
	require.NoError(t, err)
	assert.Empty(t, got)

	writeFile(t, filepath.Join(root, "demo.gemspec"), "")
	got, err = FindGemspec(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "demo.gemspec"), got)
}

func TestFindXcodeProject(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Pods", "Lib.xcodeproj"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "App", "App.xcodeproj"), 0o755))

	got, err := FindXcodeProject(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "App"), got)
}

func TestStampBuildIOSOnMac(t *testing.T) {
	root := t.TempDir()
	fake := shelltest.New()
	var out bytes.Buffer
	s := New(fake, Options{Root: root, Platform: "iOS", XcodeProjectPath: "App"}, &out)
	s.goos = "darwin"

	require.NoError(t, s.StampBuild(context.Background(), StageDev, "240305-1307"))
	require.Len(t, fake.Calls, 2)
	assert.Equal(t, "xcrun agvtool new-version -all 240305-1307", fake.Calls[0].String())
	assert.Equal(t, filepath.Join(root, "App"), fake.Calls[0].Dir)
	assert.Equal(t, "xcrun agvtool new-marketing-version SNAPSHOT", fake.Calls[1].String())
}

func TestStampBuildIOSElsewhereIsNoop(t *testing.T) {
	fake := shelltest.New()
	s := New(fake, Options{Root: t.TempDir(), Platform: IOS, XcodeProjectPath: "App"}, nil)
	s.goos = "linux"

	require.NoError(t, s.StampBuild(context.Background(), StageDev, "1"))
	assert.Empty(t, fake.Calls)
}

func TestStampBuildAndroid(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, GradleFile), buildGradle)
	s := New(shelltest.New(), Options{Root: root, Platform: Android}, nil)

	require.NoError(t, s.StampBuild(context.Background(), StageQA, "240310_1200"))
	code, err := NewGradle(root).QAVersionCode()
	require.NoError(t, err)
	assert.Equal(t, "240310_1200", code)
}

func TestStampVersionRubyGem(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "demo.gemspec"), "  spec.version = '0.1.0'\n")
	s := New(shelltest.New(), Options{Root: root, Platform: RubyGem}, nil)

	require.NoError(t, s.StampVersion(context.Background(), "0.2.0"))
	assert.Equal(t, "  spec.version     = '0.2.0'\n", readFile(t, filepath.Join(root, "demo.gemspec")))
}

func TestStampVersionIOSPodspec(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Demo.podspec"), "s.version = '1.0'\n")
	fake := shelltest.New()
	s := New(fake, Options{Root: root, Platform: IOS, XcodeProjectPath: ".", SpecPath: "Demo.podspec"}, nil)
	s.goos = "darwin"

	require.NoError(t, s.StampVersion(context.Background(), "1.1"))
	assert.True(t, fake.Ran("xcrun agvtool new-marketing-version 1.1"))
	assert.Equal(t, "s.version     = '1.1'\n", readFile(t, filepath.Join(root, "Demo.podspec")))
}

func TestPublishSpec(t *testing.T) {
	fake := shelltest.New()
	s := New(fake, Options{Root: "/work", Platform: IOS, SpecPath: "Demo.podspec"}, nil)
	require.True(t, s.PublishesSpec())
	require.NoError(t, s.PublishSpec(context.Background(), "V2PodSpecs"))
	assert.True(t, fake.Ran("pod repo push V2PodSpecs Demo.podspec"))

	assert.False(t, New(fake, Options{Platform: IOS}, nil).PublishesSpec(), "no spec path")
	assert.False(t, New(fake, Options{Platform: Android, SpecPath: "Demo.podspec"}, nil).PublishesSpec())
}

func TestStampCustomCommand(t *testing.T) {
	root := t.TempDir()
	fake := shelltest.New()
	s := New(fake, Options{Root: root, Platform: "others", Command: `./bump.sh --stage {stage} "v{version}"`}, nil)

	require.NoError(t, s.StampBuild(context.Background(), StageQA, "b12"))
	require.NoError(t, s.StampVersion(context.Background(), "2.0"))
	assert.Equal(t, []string{
		"./bump.sh --stage QA vb12",
		"./bump.sh --stage PROD v2.0",
	}, fake.Lines())
	assert.Equal(t, root, fake.Calls[0].Dir)
}

func TestStampCustomCommandFailure(t *testing.T) {
	fake := shelltest.New().Fail("./bump.sh 3")
	s := New(fake, Options{Root: t.TempDir(), Command: "./bump.sh {build}"}, nil)
	assert.Error(t, s.StampBuild(context.Background(), StageDev, "3"))
}
