package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB, ограничение для тестового корпуса
	maxFuzzInput = 1 << 16  // 64 KiB
)

// languageSeeds cover every construct the parser knows.
var languageSeeds = []string{
	"",
	"function main() -> int { 0 }\n",
	"class Point {\n  x int\n  y int\n  function len(self) -> int { self.x + self.y }\n}\n",
	"enum Color {\n  Red\n  Green\n}\nfunction f(c: Color) -> bool { c == Color.Red }\n",
	"function Summarize(text: string) -> string {\n  client \"openai/gpt-4o\"\n  prompt #\"Summarize {{ text }}\"#\n}\n",
	"function f() -> int {\n  //# Setup\n  watch let x = 0;\n  x.$watch.options(baml.WatchOptions { channel: \"c\" });\n  for (let i = 0; i < 3; i += 1) { x += i; }\n  x\n}\n",
	"function f(xs: int[]) -> int {\n  let t = 0;\n  for (let x in xs) { if (x > 2) { break; } else { continue; } }\n  while (t < 10) { t *= 2; }\n  t\n}\n",
	"function f() -> map<string, int> { let m = { \"a\": 1 }; m[\"b\"] = 2; m }\n",
	"class A { n int }\nfunction f(a: A) -> A { A { ...a, n: 2 } }\n",
	"function f(u: string) -> any { baml.fetch_value(u) }\n",
	"function f() -> string { env.HOME + env.get(\"USER\") }\n",
	"function f(x: int | string | null) -> bool { x instanceof int }\n",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range languageSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву testdata, добавляем все *.baml файлы
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".baml" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
