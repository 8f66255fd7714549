package frame

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLFormat 映射组成的序列，列顺序取首次出现的键顺序
func YAMLFormat() Format {
	return Format{
		Name:       "yaml",
		Aliases:    []string{"yml"},
		Extensions: []string{"yaml", "yml"},
		Scan:       scanYAML,
		Sink:       sinkYAML,
		Local:      true,
	}
}

func scanYAML(ctx context.Context, source string, opts Options) (*Table, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	rc := newRowCollector()
	if len(doc.Content) == 0 {
		return rc.table(), nil
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("YAML 数据必须是映射组成的序列")
	}
	for i, item := range seq.Content {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("第 %d 项不是映射", i)
		}
		keys := make([]string, 0, len(item.Content)/2)
		rec := make(map[string]any, len(item.Content)/2)
		for j := 0; j+1 < len(item.Content); j += 2 {
			key := item.Content[j].Value
			var v any
			if err := item.Content[j+1].Decode(&v); err != nil {
				return nil, fmt.Errorf("第 %d 项的键 %q: %w", i, key, err)
			}
			if _, dup := rec[key]; !dup {
				keys = append(keys, key)
			}
			rec[key] = v
		}
		rc.add(keys, rec)
	}
	return rc.table(), nil
}

func sinkYAML(ctx context.Context, t *Table, dest string, opts Options) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := &yaml.Node{Kind: yaml.MappingNode}
		for j, v := range row {
			val := &yaml.Node{}
			if err := val.Encode(v); err != nil {
				return fmt.Errorf("列 %q 的值无法编码: %w", t.Columns[j], err)
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.Columns[j]},
				val,
			)
		}
		seq.Content = append(seq.Content, m)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}
