package loggingx_test

import (
	"github.com/dogmatiq/dodeca/logging"
	. "github.com/kakkerlakgly/adapterkit/internal/x/loggingx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func WithPrefix()", func() {
	It("prefixes formatted and plain messages", func() {
		target := &logging.BufferedLogger{CaptureDebug: true}
		logger := WithPrefix(target, "<%s> ", "100%")

		logger.Log("format %d", 1)
		logger.LogString("<plain>")
		logger.Debug("debug %d", 2)
		logger.DebugString("<debug>")

		Expect(logger.IsDebug()).To(BeTrue())
		Expect(target.Messages()).To(Equal([]logging.BufferedLogMessage{
			{Message: "<100%> format 1"},
			{Message: "<100%> <plain>"},
			{Message: "<100%> debug 2", IsDebug: true},
			{Message: "<100%> <debug>", IsDebug: true},
		}))
	})
})

var _ = Describe("func WithSession()", func() {
	It("prefixes messages with the session key", func() {
		target := &logging.BufferedLogger{}
		logger := WithSession(target, "sftp://host")

		logger.LogString("<message>")

		Expect(target.Messages()).To(ConsistOf(
			logging.BufferedLogMessage{Message: "[sftp://host] <message>"},
		))
	})
})
