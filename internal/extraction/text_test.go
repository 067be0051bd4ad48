package extraction

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("textStrategy", func() {
	var (
		in   Input
		txns []Transaction
		err  error
	)

	JustBeforeEach(func() {
		txns, err = textStrategy{}.Extract(in)
	})

	When("parsing a plain-text statement", func() {
		BeforeEach(func() {
			in = Input{Text: strings.Join([]string{
				"HDFC BANK Ltd.",
				"Statement of account",
				"Date Narration Chq./Ref.No. Value Dt Withdrawal Amt Deposit Amt Closing Balance",
				"01/04/24 UPI-SWIGGY ORDER 0000401 01/04/24 500.00 10,000.00",
				"some continuation line",
				"02/04/24 NEFT CR-ACME CORP 0000402 02/04/24 25,000.00 35,000.00",
				"03/04/24 ATM WDL-MAIN ST 0000403 03/04/24 2,000.00 33,000.00",
				"Page No .: 1",
			}, "\n")}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should open one transaction per dated line", func() {
			Expect(txns).To(HaveLen(3))
		})

		It("should skip letterhead and column-header lines", func() {
			for _, t := range txns {
				Expect(t.MerchantRaw).NotTo(ContainSubstring("HDFC"))
				Expect(t.MerchantRaw).NotTo(ContainSubstring("Narration"))
			}
		})

		It("should take the last amount on a line as the closing balance", func() {
			Expect(txns[0].ClosingBalance).To(BeNumerically("~", 10000.00, 0.001))
			Expect(txns[1].ClosingBalance).To(BeNumerically("~", 35000.00, 0.001))
		})

		It("should resolve a credit when the balance increases by an amount", func() {
			Expect(txns[1].Type).To(Equal(TypeCredit))
			Expect(txns[1].Amount).To(BeNumerically("~", 25000.00, 0.001))
		})

		It("should resolve a debit when the balance decreases by an amount", func() {
			Expect(txns[2].Type).To(Equal(TypeDebit))
			Expect(txns[2].Amount).To(BeNumerically("~", 2000.00, 0.001))
		})

		It("should fall back to keywords for the first transaction", func() {
			Expect(txns[0].Type).To(Equal(TypeDebit))
			Expect(txns[0].Amount).To(BeNumerically("~", 500.00, 0.001))
		})

		It("should append continuation lines to the narration", func() {
			Expect(txns[0].MerchantRaw).To(ContainSubstring("UPI-SWIGGY ORDER"))
			Expect(txns[0].MerchantRaw).To(ContainSubstring("some continuation line"))
		})

		It("should strip the value date from the narration", func() {
			for _, t := range txns {
				Expect(t.MerchantRaw).NotTo(ContainSubstring("/"))
			}
		})

		It("should tag UPI narrations with the payment method", func() {
			Expect(txns[0].PaymentMethod).To(Equal("UPI"))
			Expect(txns[1].PaymentMethod).To(Equal("Other"))
		})

		It("should score text-derived transactions below layout-derived ones", func() {
			for _, t := range txns {
				Expect(t.ConfidenceScore).To(Equal(85))
			}
		})
	})

	When("the lines arrive out of date order", func() {
		BeforeEach(func() {
			in = Input{Text: strings.Join([]string{
				"03/04/24 ATM WDL-MAIN ST 2,000.00 33,000.00",
				"01/04/24 UPI-SWIGGY ORDER 500.00 10,000.00",
				"02/04/24 NEFT CR-ACME CORP 25,000.00 35,000.00",
			}, "\n")}
		})

		It("should sort by date before resolving directions", func() {
			Expect(txns[0].Date).To(Equal("2024-04-01"))
			Expect(txns[1].Date).To(Equal("2024-04-02"))
			Expect(txns[2].Date).To(Equal("2024-04-03"))
			Expect(txns[1].Type).To(Equal(TypeCredit))
			Expect(txns[2].Type).To(Equal(TypeDebit))
		})
	})

	When("a dated line carries a single amount", func() {
		BeforeEach(func() {
			in = Input{Text: "01/04/24 INTEREST CREDIT 12.50"}
		})

		It("should use the amount and leave the balance unset", func() {
			Expect(txns).To(HaveLen(1))
			Expect(txns[0].Amount).To(BeNumerically("~", 12.50, 0.001))
			Expect(txns[0].ClosingBalance).To(Equal(0.0))
		})

		It("should classify it by narration keywords", func() {
			Expect(txns[0].Type).To(Equal(TypeCredit))
		})
	})

	When("a dated line has no narration left after scrubbing", func() {
		BeforeEach(func() {
			in = Input{Text: "01/04/24 100.00 900.00"}
		})

		It("should fall back to a placeholder merchant", func() {
			Expect(txns).To(HaveLen(1))
			Expect(txns[0].MerchantRaw).To(Equal("Transaction"))
		})
	})

	When("the text uses pre-2000 two-digit years", func() {
		BeforeEach(func() {
			in = Input{Text: "01/04/99 CHEQUE DEPOSIT 100.00 900.00"}
		})

		It("should expand them into the 1900s", func() {
			Expect(txns[0].Date).To(Equal("1999-04-01"))
		})
	})

	When("no text is available", func() {
		BeforeEach(func() {
			in = Input{Text: "   "}
		})

		It("returns the error", func() {
			Expect(err).To(MatchError("no text available"))
		})
	})

	When("no line opens a transaction", func() {
		BeforeEach(func() {
			in = Input{Text: "just some prose\nwithout any dates"}
		})

		It("returns the error", func() {
			Expect(err).To(MatchError("text parser yielded no transactions"))
		})
	})
})

var _ = Describe("narrationType", func() {
	DescribeTable("keyword resolution",
		func(narration, expected string) {
			Expect(narrationType(narration)).To(Equal(expected))
		},
		Entry("explicit cr marker", "NEFT Cr ACME", TypeCredit),
		Entry("trailing dr marker", "CHARGES DR", TypeDebit),
		Entry("imps transfer", "IMPS-123456", TypeCredit),
		Entry("deposit", "CASH DEPOSIT", TypeCredit),
		Entry("plain purchase", "POS AMAZON", TypeDebit),
	)
})
