package polyquery

import (
	"context"

	"github.com/polyquery/polyquery/adapter"
	"github.com/polyquery/polyquery/schema"
)

// FieldDescription is one field's reported shape in a
// CollectionDescription.
type FieldDescription struct {
	Name     string
	Type     schema.FieldType
	Required bool
	Enum     []string
	Indexed  bool
}

// CollectionDescription is describe's return value: enough for an
// agent to construct a first working call against the collection
// without having seen any documents in it.
type CollectionDescription struct {
	Name          string
	Fields        []FieldDescription
	Indexes       [][]string
	DocumentCount int64
	ExampleFilter Filter
}

// Describe reports the declared shape of collection (from the schema
// registry when one is attached, falling back to live introspection
// via adapter.Describer for schemaless backends) plus a working
// example filter built from its first two fields.
func (r *Router) Describe(ctx context.Context, collection string) (CollectionDescription, error) {
	c := r.collectionSchema(collection)
	if c == nil {
		return r.describeFromAdapter(ctx, collection)
	}

	desc := CollectionDescription{Name: collection, Indexes: c.Indexes}
	for _, f := range c.Fields {
		desc.Fields = append(desc.Fields, FieldDescription{
			Name: f.Name(), Type: f.Type(), Required: f.IsRequired(),
			Enum: f.EnumValues(), Indexed: f.IsIndexed(),
		})
	}
	desc.ExampleFilter = exampleFilter(c.Fields)

	if describer, ok := r.adp.(adapter.Describer); ok {
		count, err := r.getDocumentCount(ctx, describer, collection)
		if err != nil {
			return CollectionDescription{}, err
		}
		desc.DocumentCount = count
	}
	return desc, nil
}

// getDocumentCount dedupes concurrent describe calls against the same
// collection into a single adapter round-trip via singleflight. A
// burst of agent calls describing the same collection shouldn't each
// pay their own count query.
func (r *Router) getDocumentCount(ctx context.Context, describer adapter.Describer, collection string) (int64, error) {
	v, err, _ := r.describeSF.Do("count:"+collection, func() (any, error) {
		return describer.GetDocumentCount(ctx, collection)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// describeFromAdapter handles collections with no registry entry
// (the common case for the document-store and search-engine backends,
// which have no declared schema to fall back on): it asks the adapter
// to introspect the live collection directly.
func (r *Router) describeFromAdapter(ctx context.Context, collection string) (CollectionDescription, error) {
	describer, ok := r.adp.(adapter.Describer)
	if !ok {
		return CollectionDescription{Name: collection}, nil
	}
	info, err := r.describeCollectionOnce(ctx, describer, collection)
	if err != nil {
		return CollectionDescription{}, err
	}
	desc := CollectionDescription{Name: collection, Indexes: info.Indexes, DocumentCount: info.Count}
	for _, f := range info.Fields {
		desc.Fields = append(desc.Fields, FieldDescription{
			Name: f.Name(), Type: f.Type(), Required: f.IsRequired(),
			Enum: f.EnumValues(), Indexed: f.IsIndexed(),
		})
	}
	desc.ExampleFilter = exampleFilter(info.Fields)
	return desc, nil
}

func (r *Router) describeCollectionOnce(ctx context.Context, describer adapter.Describer, collection string) (adapter.CollectionInfo, error) {
	v, err, _ := r.describeSF.Do("describe:"+collection, func() (any, error) {
		return describer.DescribeCollection(ctx, collection)
	})
	if err != nil {
		return adapter.CollectionInfo{}, err
	}
	return v.(adapter.CollectionInfo), nil
}

// exampleFilter builds a working starting filter from the first two
// declared fields of a usable type: equality for string/enum fields
// (the enum's first value when one is declared), a non-negative lower
// bound for numbers, and a literal true for booleans. Object/array/time
// fields are skipped, since there's no single value that's a sensible
// default for them, and fields past those first two are left out.
func exampleFilter(fields []*schema.Field) Filter {
	f := Filter{}
	n := 0
	for _, field := range fields {
		if n >= 2 {
			break
		}
		switch field.Type() {
		case schema.TypeString:
			f[field.Name()] = "example"
		case schema.TypeEnum:
			if values := field.EnumValues(); len(values) > 0 {
				f[field.Name()] = values[0]
			} else {
				f[field.Name()] = "example"
			}
		case schema.TypeNumber:
			f[field.Name()] = OpBag{OpGTE: 0}
		case schema.TypeBool:
			f[field.Name()] = true
		default:
			continue
		}
		n++
	}
	return f
}
