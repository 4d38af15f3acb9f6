package ais

import "testing"

func TestQueueEnqueueDropsOldestAtCapacity(t *testing.T) {
	q := NewQueue(2)
	q.Enqueue(Message{MMSI: "1"})
	q.Enqueue(Message{MMSI: "2"})

	dropped := q.Enqueue(Message{MMSI: "3"})
	if !dropped {
		t.Fatal("expected a drop once the queue is at capacity")
	}
	if q.Size() != 2 {
		t.Fatalf("expected size 2, got %d", q.Size())
	}
	if q.Dropped() != 1 {
		t.Errorf("expected 1 dropped total, got %d", q.Dropped())
	}

	batch := q.DrainBatch(2)
	if len(batch) != 2 || batch[0].MMSI != "2" || batch[1].MMSI != "3" {
		t.Errorf("expected oldest-dropped order [2,3], got %+v", batch)
	}
}

func TestQueueRequeuePrependsAndTruncatesOverflow(t *testing.T) {
	q := NewQueue(2)
	q.Enqueue(Message{MMSI: "new"})

	q.Requeue([]Message{{MMSI: "retry-1"}, {MMSI: "retry-2"}})

	if q.Size() != 2 {
		t.Fatalf("expected size capped at 2, got %d", q.Size())
	}
	batch := q.DrainBatch(2)
	if batch[0].MMSI != "retry-2" || batch[1].MMSI != "new" {
		t.Errorf("expected requeued messages ahead of existing ones with oldest overflow dropped, got %+v", batch)
	}
}

func TestQueueDrainBatchCapsAtAvailable(t *testing.T) {
	q := NewQueue(5)
	q.Enqueue(Message{MMSI: "1"})

	batch := q.DrainBatch(10)
	if len(batch) != 1 {
		t.Fatalf("expected 1 item, got %d", len(batch))
	}
	if q.Size() != 0 {
		t.Errorf("expected queue drained, size = %d", q.Size())
	}
}
