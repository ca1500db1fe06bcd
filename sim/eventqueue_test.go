package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventQueueImpl", func() {
	var (
		queue *EventQueueImpl
		h     *recordingHandler
	)

	BeforeEach(func() {
		queue = NewEventQueue()
		h = &recordingHandler{name: "H", log: &[]string{}}
	})

	It("should pop in order", func() {
		numEvents := 100
		for i := 0; i < numEvents; i++ {
			t := VTimeInSec(rand.Float64() / 1e8)
			queue.Push(newSampleEvent(t, h, PriorityNormal, FIFO))
		}

		now := VTimeInSec(-1)
		for i := 0; i < numEvents; i++ {
			event := queue.Pop()
			Expect(event.Time() >= now).To(BeTrue())
			now = event.Time()
		}
	})

	It("should run smaller priority values first", func() {
		late := newSampleEvent(1, h, PriorityNormal+1, FIFO)
		early := newSampleEvent(1, h, PriorityNormal, FIFO)

		queue.Push(late)
		queue.Push(early)

		Expect(queue.Pop()).To(Equal(early))
		Expect(queue.Pop()).To(Equal(late))
	})

	It("should keep insertion order for FIFO events", func() {
		evts := []sampleEvent{
			newSampleEvent(2, h, PriorityNormal, FIFO),
			newSampleEvent(2, h, PriorityNormal, FIFO),
			newSampleEvent(2, h, PriorityNormal, FIFO),
		}
		for _, e := range evts {
			queue.Push(e)
		}

		for _, e := range evts {
			Expect(queue.Pop()).To(Equal(e))
		}
	})

	It("should run the most recently scheduled LIFO event first", func() {
		evts := []sampleEvent{
			newSampleEvent(2, h, PriorityNormal, LIFO),
			newSampleEvent(2, h, PriorityNormal, LIFO),
			newSampleEvent(2, h, PriorityNormal, LIFO),
		}
		for _, e := range evts {
			queue.Push(e)
		}

		Expect(queue.Pop()).To(Equal(evts[2]))
		Expect(queue.Pop()).To(Equal(evts[1]))
		Expect(queue.Pop()).To(Equal(evts[0]))
	})

	It("should run LIFO events before FIFO events at the same instant", func() {
		fifo := newSampleEvent(2, h, PriorityNormal, FIFO)
		lifo := newSampleEvent(2, h, PriorityNormal, LIFO)

		queue.Push(fifo)
		queue.Push(lifo)

		Expect(queue.Peek()).To(Equal(lifo))
		Expect(queue.Len()).To(Equal(2))
		Expect(queue.Pop()).To(Equal(lifo))
		Expect(queue.Pop()).To(Equal(fifo))
	})
})
