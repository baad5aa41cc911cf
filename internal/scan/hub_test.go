package scan

import (
	"bytes"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Hub", func() {
	var hub *Hub

	BeforeEach(func() {
		hub = NewHub(2)
	})

	It("should deliver transitions to every subscriber", func() {
		first, cancelFirst := hub.Subscribe()
		defer cancelFirst()
		second, cancelSecond := hub.Subscribe()
		defer cancelSecond()

		hub.OnTransition(Transition{SessionID: "s1", From: Idle, To: Uploading})

		Expect(<-first).To(HaveField("To", Uploading))
		Expect(<-second).To(HaveField("To", Uploading))
	})

	It("should close a subscriber that falls behind instead of blocking", func() {
		slow, cancelSlow := hub.Subscribe()
		defer cancelSlow()
		fast, cancelFast := hub.Subscribe()
		defer cancelFast()

		for _, to := range []State{Uploading, AwaitingRendezvous, Preview} {
			hub.OnTransition(Transition{SessionID: "s1", To: to})
			if to != Preview {
				Expect(<-fast).To(HaveField("To", to))
			}
		}

		Expect(<-slow).To(HaveField("To", Uploading))
		Expect(<-slow).To(HaveField("To", AwaitingRendezvous))
		Eventually(slow).Should(BeClosed())
		Expect(<-fast).To(HaveField("To", Preview))
		Expect(hub.Closed()).To(BeFalse())
	})

	It("should let a closed slow subscriber resubscribe", func() {
		slow, cancelSlow := hub.Subscribe()
		for i := 0; i < 3; i++ {
			hub.OnTransition(Transition{SessionID: "s1", To: Uploading})
		}
		cancelSlow()
		var missed int
		for range slow {
			missed++
		}
		Expect(missed).To(Equal(2))

		again, cancel := hub.Subscribe()
		defer cancel()
		hub.OnTransition(Transition{SessionID: "s1", To: Preview})
		Expect(<-again).To(HaveField("To", Preview))
	})

	It("should close the channel when the subscription is cancelled", func() {
		ch, cancel := hub.Subscribe()
		cancel()
		cancel()
		Eventually(ch).Should(BeClosed())
	})

	When("the hub is closed", func() {
		BeforeEach(func() {
			hub.Close()
		})

		It("should hand out closed channels", func() {
			ch, cancel := hub.Subscribe()
			defer cancel()
			Eventually(ch).Should(BeClosed())
		})
	})

	It("should close existing subscriptions on Close", func() {
		ch, cancel := hub.Subscribe()
		hub.Close()
		Eventually(ch).Should(BeClosed())
		Expect(hub.Closed()).To(BeTrue())
		cancel()
	})
})

var _ = Describe("Listeners", func() {
	It("should notify each listener in order", func() {
		var order []string
		ls := Listeners{
			ListenerFunc(func(Transition) { order = append(order, "first") }),
			ListenerFunc(func(Transition) { order = append(order, "second") }),
		}
		ls.OnTransition(Transition{})
		Expect(order).To(Equal([]string{"first", "second"}))
	})
})

var _ = Describe("LogListener", func() {
	var (
		buf      *bytes.Buffer
		listener Listener
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		listener = LogListener(slog.New(slog.NewTextHandler(buf, nil)))
	})

	It("should log the transition", func() {
		listener.OnTransition(Transition{SessionID: "s1", From: Idle, To: Uploading})
		Expect(buf.String()).To(ContainSubstring("session_id=s1"))
		Expect(buf.String()).To(ContainSubstring("from=idle"))
		Expect(buf.String()).To(ContainSubstring("to=uploading"))
	})

	It("should include the failure kind", func() {
		listener.OnTransition(Transition{SessionID: "s1", From: AwaitingRendezvous, To: Idle, Err: ErrRendezvousTimeout})
		Expect(buf.String()).To(ContainSubstring("kind=rendezvous_timeout"))
	})
})

var _ = Describe("ErrorKind", func() {
	DescribeTable("classifies terminal errors",
		func(err error, kind string) {
			Expect(ErrorKind(err)).To(Equal(kind))
		},
		Entry("no error", nil, ""),
		Entry("submission", &SubmissionError{Reason: "server_error"}, "submission_failure"),
		Entry("analysis", &AnalysisError{Reason: "no face"}, "analysis_failure"),
		Entry("timeout", ErrRendezvousTimeout, "rendezvous_timeout"),
		Entry("anything else", errors.New("boom"), "unknown"),
	)
})
