package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("validateAgainstFooter", func() {
	var (
		text   string
		txns   []Transaction
		result Validation
	)

	JustBeforeEach(func() {
		result = validateAgainstFooter(text, txns, "text_regex")
	})

	BeforeEach(func() {
		txns = []Transaction{
			{Type: TypeDebit},
			{Type: TypeDebit},
			{Type: TypeCredit},
		}
	})

	When("the footer matches the extracted counts", func() {
		BeforeEach(func() {
			text = "statement body\nTotal Dr Count : 2\nTotal Cr Count : 1"
		})

		It("should find the footer", func() {
			Expect(result.FoundFooter).To(BeTrue())
		})

		It("should report the expected counts", func() {
			Expect(result.ExpectedDrCount).To(Equal(2))
			Expect(result.ExpectedCrCount).To(Equal(1))
		})

		It("should count the extracted transactions by type", func() {
			Expect(result.ActualDrCount).To(Equal(2))
			Expect(result.ActualCrCount).To(Equal(1))
		})

		It("should report a match", func() {
			Expect(result.Matches).NotTo(BeNil())
			Expect(*result.Matches).To(BeTrue())
		})

		It("should carry the strategy name", func() {
			Expect(result.Method).To(Equal("text_regex"))
		})
	})

	When("the footer disagrees with the extracted counts", func() {
		BeforeEach(func() {
			text = "Total Dr Count : 5\nTotal Cr Count : 1"
		})

		It("should report a mismatch without failing", func() {
			Expect(result.Matches).NotTo(BeNil())
			Expect(*result.Matches).To(BeFalse())
		})
	})

	When("the statement prints per-page subtotals", func() {
		BeforeEach(func() {
			text = "Total Dr Count : 1\nTotal Cr Count : 0\nmore pages\nTotal Dr Count : 2\nTotal Cr Count : 1"
		})

		It("should take the last footer as the statement summary", func() {
			Expect(result.ExpectedDrCount).To(Equal(2))
			Expect(result.ExpectedCrCount).To(Equal(1))
			Expect(*result.Matches).To(BeTrue())
		})
	})

	When("the footer uses different separators and case", func() {
		BeforeEach(func() {
			text = "TOTAL DR COUNT- 2\ntotal cr count. 1"
		})

		It("should still parse the counts", func() {
			Expect(result.FoundFooter).To(BeTrue())
			Expect(result.ExpectedDrCount).To(Equal(2))
			Expect(result.ExpectedCrCount).To(Equal(1))
		})
	})

	When("no footer is present", func() {
		BeforeEach(func() {
			text = "statement body without a summary"
		})

		It("should not find a footer", func() {
			Expect(result.FoundFooter).To(BeFalse())
		})

		It("should leave the verdict open", func() {
			Expect(result.Matches).To(BeNil())
		})

		It("should still count the extracted transactions", func() {
			Expect(result.ActualDrCount).To(Equal(2))
			Expect(result.ActualCrCount).To(Equal(1))
		})
	})
})
