package cluster

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/koustreak/clusterdash/internal/errs"
)

// ShardReplica is one node's copy of a shard.
type ShardReplica struct {
	Node        string `json:"node"`
	ObjectCount int64  `json:"objectCount"`
}

// ShardDrift lists the replicas of a shard whose object counts disagree.
type ShardDrift struct {
	Collection string         `json:"collection"`
	Shard      string         `json:"shard"`
	Replicas   []ShardReplica `json:"replicas"`
}

// ShardConsistency is the result of the check_shard_consistency action.
type ShardConsistency struct {
	Consistent   bool         `json:"consistent"`
	ShardsTotal  int          `json:"shardsTotal"`
	Inconsistent []ShardDrift `json:"inconsistent"`
}

// nodesDocument is the subset of the verbose nodes payload the check reads.
type nodesDocument struct {
	Nodes []struct {
		Name   string `json:"name"`
		Shards []struct {
			Name        string `json:"name"`
			Class       string `json:"class"`
			ObjectCount int64  `json:"objectCount"`
		} `json:"shards"`
	} `json:"nodes"`
}

// checkShardConsistency compares object counts of every shard across the
// nodes that hold a replica of it.
func checkShardConsistency(ctx context.Context, c Client) (*ShardConsistency, error) {
	raw, err := c.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := decodeNodes(raw)
	if err != nil {
		return nil, err
	}

	type shardKey struct{ collection, shard string }
	replicas := make(map[shardKey][]ShardReplica)
	for _, node := range doc.Nodes {
		for _, sh := range node.Shards {
			k := shardKey{sh.Class, sh.Name}
			replicas[k] = append(replicas[k], ShardReplica{Node: node.Name, ObjectCount: sh.ObjectCount})
		}
	}

	out := &ShardConsistency{ShardsTotal: len(replicas), Inconsistent: []ShardDrift{}}
	for k, reps := range replicas {
		if !countsDiffer(reps) {
			continue
		}
		sort.Slice(reps, func(i, j int) bool { return reps[i].Node < reps[j].Node })
		out.Inconsistent = append(out.Inconsistent, ShardDrift{Collection: k.collection, Shard: k.shard, Replicas: reps})
	}
	sort.Slice(out.Inconsistent, func(i, j int) bool {
		a, b := out.Inconsistent[i], out.Inconsistent[j]
		if a.Collection != b.Collection {
			return a.Collection < b.Collection
		}
		return a.Shard < b.Shard
	})
	out.Consistent = len(out.Inconsistent) == 0
	return out, nil
}

// decodeNodes round-trips the client's nodes value through JSON so any
// payload with the REST field names can be read.
func decodeNodes(raw any) (*nodesDocument, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "encode nodes status", err)
	}
	var doc nodesDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "decode nodes status", err)
	}
	return &doc, nil
}

func countsDiffer(reps []ShardReplica) bool {
	for _, r := range reps[1:] {
		if r.ObjectCount != reps[0].ObjectCount {
			return true
		}
	}
	return false
}
