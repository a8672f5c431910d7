package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `
items:
  - key: medkit
    name: 医疗包
    respawn: true
  - key: crate
    name: 木箱
spawn_points:
  - {x: 0, y: 0, z: 0}
  - {x: 10, y: 0, z: 5, yaw: 90}
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(c.SpawnPoints) != 2 || c.SpawnPoints[1].Yaw != 90 {
		t.Fatalf("spawn points = %+v", c.SpawnPoints)
	}

	item, ok := c.Item("medkit")
	if !ok || item.Name != "医疗包" {
		t.Fatalf("medkit = %+v, %v", item, ok)
	}
	if _, ok := c.Item("anvil"); ok {
		t.Fatal("anvil should not exist")
	}

	respawn := c.RespawnItems()
	if len(respawn) != 1 || respawn[0].Key != "medkit" {
		t.Fatalf("respawn items = %+v", respawn)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"no spawn points": "items: []\n",
		"missing key":     "items:\n  - name: x\nspawn_points:\n  - {x: 0}\n",
		"duplicate key":   "items:\n  - key: a\n  - key: a\nspawn_points:\n  - {x: 0}\n",
		"not yaml":        "items: [",
	}

	for name, body := range cases {
		if _, err := Parse([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
