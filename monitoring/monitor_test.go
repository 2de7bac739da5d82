package monitoring

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/akita-mos/batch"
	"github.com/sarchlab/akita-mos/cpu"
	"github.com/sarchlab/akita-mos/job"
)

const deck = "$AMJ000100100005\nGD10PD10H\n$DTA\nTEST\n$END0001\n" +
	"$AMJ000200100005\nH\n$DTA\n$END0002\n"

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		runner *batch.Runner
		done   chan struct{}
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		m.Router().ServeHTTP(rec, req)

		return rec
	}

	getState := func() stateRsp {
		rsp := stateRsp{}
		Expect(json.Unmarshal(get("/api/state").Body.Bytes(), &rsp)).To(Succeed())

		return rsp
	}

	runInBackground := func() {
		done = make(chan struct{})

		go func() {
			defer GinkgoRecover()
			defer close(done)

			_, err := runner.RunAll(job.NewLoader(strings.NewReader(deck)))
			Expect(err).NotTo(HaveOccurred())
		}()
	}

	BeforeEach(func() {
		m = NewMonitor()
		quiet, _ := logtest.NewNullLogger()

		runner = batch.MakeBuilder().
			WithSink(job.NewTextSink(new(bytes.Buffer))).
			WithLogger(quiet).
			WithHooks(m).
			Build("Batch")

		m.RegisterComponent(runner.CPU())
		m.RegisterStorage(runner.Storage())
	})

	It("should report the final state after a run", func() {
		runInBackground()
		Eventually(done).Should(BeClosed())

		s := getState()
		Expect(s.JobID).To(Equal(2))
		Expect(s.Terminated).To(BeTrue())
		Expect(s.LastEvent).To(Equal(cpu.HookPosTermination.Name))
		Expect(s.Steps).To(Equal(uint64(4)))

		Expect(m.Jobs().Finished).To(Equal(uint64(2)))
		Expect(m.Jobs().InProgress).To(Equal(uint64(0)))
	})

	It("should list components", func() {
		Expect(get("/api/list_components").Body.String()).
			To(Equal(`["Batch.CPU"]`))
	})

	It("should return 404 for unknown components", func() {
		Expect(get("/api/component/GPU").Code).To(Equal(http.StatusNotFound))
	})

	It("should refuse to inspect a running processor", func() {
		Expect(get("/api/component/Batch.CPU").Code).
			To(Equal(http.StatusConflict))
		Expect(get("/api/memory").Code).To(Equal(http.StatusConflict))
	})

	It("should pause and continue the processor", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		runInBackground()

		Eventually(func() bool { return getState().Waiting }).Should(BeTrue())

		s := getState()
		Expect(s.Paused).To(BeTrue())
		Expect(s.JobID).To(Equal(1))
		Expect(s.LastEvent).To(Equal(cpu.HookPosJobStart.Name))
		Consistently(done).ShouldNot(BeClosed())

		rec := get("/api/component/Batch.CPU")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))

		frames := []frameRsp{}
		Expect(json.Unmarshal(get("/api/memory").Body.Bytes(), &frames)).
			To(Succeed())
		Expect(frames).To(HaveLen(2))

		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		Eventually(done).Should(BeClosed())
		Expect(getState().Waiting).To(BeFalse())
	})

	It("should reject malformed field requests", func() {
		Expect(get("/api/field/notjson").Code).To(Equal(http.StatusBadRequest))
	})

	It("should report progress", func() {
		bars := []map[string]any{}
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
			To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]).To(HaveKeyWithValue("name", "Jobs"))
		Expect(bars[0]).NotTo(HaveKey("Mutex"))
	})

	It("should report resources", func() {
		rsp := resourceRsp{}
		Expect(json.Unmarshal(get("/api/resource").Body.Bytes(), &rsp)).
			To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve on a random port", func() {
		url, err := m.WithPortNumber(80).StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer m.StopServer()

		rsp, err := http.Get(url + "/api/list_components")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
