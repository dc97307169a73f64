package sse

import "testing"

func buildSketch(t *testing.T, id, text string) Sketch {
	t.Helper()
	ix := NewIndexer(id)
	if _, err := ix.Write([]byte(text)); err != nil {
		t.Fatal(err)
	}
	sketch, _ := ix.Finalize()
	return sketch
}

func TestUpdateMonotonicityS4(t *testing.T) {
	client, err := NewClient()
	if err != nil {
		t.Fatal(err)
	}
	server := NewServer(nil)

	bigSketch := buildSketch(t, "doc1", "Hello, hello WORLD")
	bigIndex, err := client.SecureIndex("dA", 100, bigSketch)
	if err != nil {
		t.Fatal(err)
	}
	if merge, err := server.Update("dA", bigIndex, nil); err != nil {
		t.Fatal(err)
	} else if merge != nil {
		t.Fatalf("unexpected merge request installing dA: %+v", merge)
	}

	smallSketch := buildSketch(t, "doc1", "hi")
	smallIndex, err := client.SecureIndex("dB", 10, smallSketch)
	if err != nil {
		t.Fatal(err)
	}

	merge, err := server.Update("dB", smallIndex, nil)
	if err != nil {
		t.Fatal(err)
	}
	if merge == nil {
		t.Fatal("expected a merge request when a smaller index would orphan dA")
	}
	if merge.Domain != "dA" {
		t.Fatalf("merge request domain = %q, want dA", merge.Domain)
	}
	if len(merge.Docs) != 1 || merge.Docs[0] != "doc1" {
		t.Fatalf("merge request docs = %v, want [doc1]", merge.Docs)
	}

	if _, ok := server.Snapshot()["dB"]; ok {
		t.Fatal("dB must not be installed after a rejected update")
	}
}

func TestUpdateWithRepsSucceeds(t *testing.T) {
	client, err := NewClient()
	if err != nil {
		t.Fatal(err)
	}
	server := NewServer(nil)

	bigSketch := buildSketch(t, "doc1", "Hello, hello WORLD")
	bigIndex, err := client.SecureIndex("dA", 100, bigSketch)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := server.Update("dA", bigIndex, nil); err != nil {
		t.Fatal(err)
	}

	smallSketch := buildSketch(t, "doc1", "hi")
	smallIndex, err := client.SecureIndex("dB", 10, smallSketch)
	if err != nil {
		t.Fatal(err)
	}

	merge, err := server.Update("dB", smallIndex, []string{"dA"})
	if err != nil {
		t.Fatal(err)
	}
	if merge != nil {
		t.Fatalf("unexpected merge request when dA is listed in reps: %+v", merge)
	}

	snap := server.Snapshot()
	if _, ok := snap["dA"]; ok {
		t.Fatal("dA should have been removed once replaced")
	}
	if _, ok := snap["dB"]; !ok {
		t.Fatal("dB should be installed")
	}
}

func TestUpdateRejectsSortingDomainName(t *testing.T) {
	client, err := NewClient()
	if err != nil {
		t.Fatal(err)
	}
	server := NewServer(nil)
	sketch := buildSketch(t, "doc1", "hello")
	index, err := client.SecureIndex("dA", 10, sketch)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := server.Update("sorting", index, nil); err == nil {
		t.Fatal("update under the reserved sorting name must fail")
	}
}

func TestSearchAbortsOnUnknownDomain(t *testing.T) {
	client, err := NewClient()
	if err != nil {
		t.Fatal(err)
	}
	server := NewServer(nil)
	sketch := buildSketch(t, "doc1", "hello world")
	index, err := client.SecureIndex("dA", 10, sketch)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := server.Update("dA", index, nil); err != nil {
		t.Fatal(err)
	}

	query, err := client.CreateQuery("hello")
	if err != nil {
		t.Fatal(err)
	}
	query["unknownDomain"] = []string{"whatever"}

	results := server.Search(query)
	if results != nil {
		t.Fatalf("expected no results when any queried domain is unknown, got %v", results)
	}
}
