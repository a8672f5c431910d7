package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Item 是可以通过 SPAWN 指令放置到场景中的物品
type Item struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	// 每次进入准备阶段时重新放置
	Respawn bool `yaml:"respawn"`
}

type SpawnPoint struct {
	X   float64 `yaml:"x"`
	Y   float64 `yaml:"y"`
	Z   float64 `yaml:"z"`
	Yaw float64 `yaml:"yaw"`
}

type Catalog struct {
	Items       []Item       `yaml:"items"`
	SpawnPoints []SpawnPoint `yaml:"spawn_points"`

	byKey map[string]Item
}

func Load(filePath string) (*Catalog, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取场景目录失败: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析场景目录失败: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("场景目录无效: %w", err)
	}

	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.SpawnPoints) == 0 {
		return fmt.Errorf("spawn_points 不能为空")
	}

	c.byKey = make(map[string]Item, len(c.Items))
	for i, item := range c.Items {
		if item.Key == "" {
			return fmt.Errorf("第 %d 个物品缺少 key", i)
		}
		if _, dup := c.byKey[item.Key]; dup {
			return fmt.Errorf("物品 key 重复: %s", item.Key)
		}
		c.byKey[item.Key] = item
	}

	return nil
}

func (c *Catalog) Item(key string) (Item, bool) {
	item, ok := c.byKey[key]
	return item, ok
}

func (c *Catalog) RespawnItems() []Item {
	var items []Item
	for _, item := range c.Items {
		if item.Respawn {
			items = append(items, item)
		}
	}

	return items
}
