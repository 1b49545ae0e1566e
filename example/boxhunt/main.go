package main

import (
	"flag"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/toolness/aabbtree"
)

// This example fills a tree with random crates, fires rays at it while a
// writer goroutine keeps moving crates around, and verifies a sample of the
// query results against a brute force scan. The tree itself is not
// synchronized; a single RWMutex arbitrates between the writer and the
// query goroutines.

var (
	crates = flag.Int("crates", 2000, "number of crates in the scene")
	rays   = flag.Int("rays", 10000, "number of rays to fire")
	seed   = flag.Int64("seed", 1313131313, "random seed")
	out    = flag.String("out", "", "write a BMP snapshot of the tree to this path")
)

type scene struct {
	mu     sync.RWMutex
	tree   *aabbtree.Tree[int]
	crates map[int]aabbtree.BoundingBox
}

func randomCrate(rnd *rand.Rand) aabbtree.BoundingBox {
	origin := aabbtree.Vec3{X: rnd.Float64() * 1000, Y: rnd.Float64() * 1000, Z: rnd.Float64() * 1000}
	size := aabbtree.Vec3{X: rnd.Float64()*10 + 1, Y: rnd.Float64()*10 + 1, Z: rnd.Float64()*10 + 1}
	return aabbtree.BoundingBox{Min: origin, Max: origin.Add(size)}
}

func main() {
	flag.Parse()

	rnd := rand.New(rand.NewSource(*seed))

	s := &scene{
		tree:   aabbtree.NewTreeWithCapacity[int](*crates),
		crates: make(map[int]aabbtree.BoundingBox, *crates),
	}

	start := time.Now()
	for i := 0; i < *crates; i++ {
		b := randomCrate(rnd)
		if err := s.tree.Insert(b, i); err != nil {
			log.Fatalln("insert failed:", err)
		}
		s.crates[i] = b
	}
	log.Infoln("built tree with", s.tree.Size(), "crates in", time.Since(start))

	done := make(chan struct{})
	go func() {
		defer close(done)
		mover := rand.New(rand.NewSource(*seed + 1))
		for i := 0; i < *crates; i++ {
			id := mover.Intn(*crates)
			b := randomCrate(mover)

			s.mu.Lock()
			err := s.tree.Update(b, id)
			if err == nil {
				s.crates[id] = b
			}
			s.mu.Unlock()

			if err != nil {
				log.Fatalln("update failed:", err)
			}
		}
	}()

	start = time.Now()
	var hits int
	for i := 0; i < *rays; i++ {
		ray := aabbtree.Ray{
			Origin:    aabbtree.Vec3{X: rnd.Float64() * 1000, Y: rnd.Float64() * 1000, Z: rnd.Float64() * 1000},
			Direction: aabbtree.Vec3{X: rnd.Float64()*2 - 1, Y: rnd.Float64()*2 - 1, Z: rnd.Float64()*2 - 1},
		}

		s.mu.RLock()
		found := s.tree.FindIntersectors(ray)

		// spot check against a scan over every crate
		if i%1000 == 0 {
			var scanned int
			for _, b := range s.crates {
				if b.ContainsPoint(ray.Origin) || ray.Intersects(b) {
					scanned++
				}
			}
			if scanned != len(found) {
				log.Fatalln("tree and scan disagree:", len(found), "vs", scanned)
			}
		}
		s.mu.RUnlock()

		hits += len(found)
	}
	<-done
	log.Infoln("fired", *rays, "rays,", hits, "crate hits in", time.Since(start))

	if *out != "" {
		s.mu.RLock()
		err := s.tree.Image(*out)
		s.mu.RUnlock()
		if err != nil {
			log.Fatalln("writing snapshot failed:", err)
		}
		log.Infoln("wrote snapshot to", *out)
	}
}
