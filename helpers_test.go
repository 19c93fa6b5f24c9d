package productinfo

import (
	"context"
	"fmt"
)

type staticTree map[int64]NodeRecord

func (t staticTree) Lookup(_ context.Context, id int64) (NodeRecord, bool) {
	rec, ok := t[id]
	return rec, ok
}

type staticRepository struct {
	tree     staticTree
	variants map[int64]map[string]map[string]string
	fail     map[int64]error
}

func (r staticRepository) FetchNode(_ context.Context, id int64) (NodeRecord, error) {
	if err := r.fail[id]; err != nil {
		return NodeRecord{}, err
	}
	rec, ok := r.tree[id]
	if !ok {
		return NodeRecord{}, fmt.Errorf("node %d not found", id)
	}
	return rec, nil
}

func (r staticRepository) FetchVariant(_ context.Context, nodeID int64, variantKey string) (map[string]string, bool, error) {
	if err := r.fail[nodeID]; err != nil {
		return nil, false, err
	}
	values, ok := r.variants[nodeID][variantKey]
	return values, ok, nil
}
