// Package sparsecache provides an out-of-core page cache for large sparse
// matrix datasets, as used by external-memory gradient boosting training.
//
// A dataset that does not fit in memory is serialized once into one or more
// on-disk shard files, each holding a sequence of size-bounded pages, plus a
// metadata file with the dataset-level aggregates. During training the pages
// are re-read shard by shard with background read-ahead, so decode and I/O
// latency stay hidden behind training compute.
//
// # Building a cache
//
//	err := sparsecache.CreateRowPages(src, "cache/train:cache2/train")
//
// The builder streams row batches from src into size-bounded pages, hands
// each full page to background writers, and accumulates the dataset
// aggregates (row/column/nonzero counts, labels, weights, ranking group
// boundaries) in one pass.
//
// # Reading it back
//
//	ps, err := sparsecache.Open("cache/train:cache2/train", shard.RowPageSuffix)
//	defer ps.Close()
//	for {
//	    ok, err := ps.Next()
//	    if err != nil || !ok {
//	        break
//	    }
//	    consume(ps.Value())
//	}
//	ps.BeforeFirst() // rewind for the next training epoch
//
// Pages arrive in a fixed round-robin order across shards; within a shard
// they arrive in strict file order. Only forward passes with an explicit
// rewind are supported — there is no random access into a shard.
//
// # Shards and codecs
//
// The cache location string is a ':'-separated list of path prefixes, one
// shard per prefix. Each shard's page file starts with a codec-name tag;
// the codec is chosen from the prefix extension at build time (see
// codec.Decide) and resolved from the tag at open time, so readers never
// guess the format.
package sparsecache
