package services

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/baitool/camt053/internal/models"
	"github.com/moov-io/iso20022/pkg/common"
)

const (
	Camt053Namespace   = "urn:iso:std:iso:20022:tech:xsd:camt.053.001.02"
	Camt053MessageType = "camt.053.001.02"

	DefaultServicerBIC = "RABONL2U"
	DefaultOwnerName   = "Unknown Account"

	isoDateTimeLayout = "2006-01-02T15:04:05"
)

// Bank transaction code values
const (
	domainPayments       = "PMNT"
	familyReceivedCredit = "RCDT"
	familyIssuedCredit   = "ICDT"
	subFamilySEPACredit  = "ESCT"
	entryStatusBooked    = "BOOK"
)

// StatementBuilder renders a StatementDocument into its wire form
type StatementBuilder interface {
	BuildStatement(doc models.StatementDocument) ([]byte, error)
}

// Camt053Document is the camt.053.001.02 element tree
type Camt053Document struct {
	XMLName       xml.Name                  `xml:"urn:iso:std:iso:20022:tech:xsd:camt.053.001.02 Document"`
	BkToCstmrStmt BankToCustomerStatementV2 `xml:"BkToCstmrStmt"`
}

type BankToCustomerStatementV2 struct {
	GrpHdr GroupHeader42     `xml:"GrpHdr"`
	Stmt   AccountStatement2 `xml:"Stmt"`
}

type GroupHeader42 struct {
	MsgId   common.Max35Text `xml:"MsgId"`
	CreDtTm string           `xml:"CreDtTm"`
}

type AccountStatement2 struct {
	Id           common.Max35Text `xml:"Id"`
	ElctrncSeqNb string           `xml:"ElctrncSeqNb"`
	CreDtTm      string           `xml:"CreDtTm"`
	FrToDt       DateTimePeriod   `xml:"FrToDt"`
	Acct         CashAccount20    `xml:"Acct"`
	Bal          []CashBalance3   `xml:"Bal"`
	Ntry         []ReportEntry2   `xml:"Ntry"`
}

type DateTimePeriod struct {
	FrDtTm string `xml:"FrDtTm"`
	ToDtTm string `xml:"ToDtTm"`
}

type CashAccount20 struct {
	Id   AccountIdentification         `xml:"Id"`
	Ccy  common.ActiveCurrencyCode     `xml:"Ccy"`
	Ownr PartyName                     `xml:"Ownr"`
	Svcr BranchAndFinancialInstitution `xml:"Svcr"`
}

type AccountIdentification struct {
	IBAN string `xml:"IBAN"`
}

type PartyName struct {
	Nm common.Max140Text `xml:"Nm"`
}

type BranchAndFinancialInstitution struct {
	FinInstnId FinancialInstitutionIdentification `xml:"FinInstnId"`
}

type FinancialInstitutionIdentification struct {
	BIC common.BICFIDec2014Identifier `xml:"BIC"`
}

type CashBalance3 struct {
	Tp        BalanceType12           `xml:"Tp"`
	Amt       ActiveCurrencyAndAmount `xml:"Amt"`
	CdtDbtInd string                  `xml:"CdtDbtInd"`
	Dt        DateAndDateTimeChoice   `xml:"Dt"`
}

type BalanceType12 struct {
	CdOrPrtry BalanceTypeCode `xml:"CdOrPrtry"`
}

type BalanceTypeCode struct {
	Cd string `xml:"Cd"`
}

type ActiveCurrencyAndAmount struct {
	Ccy   common.ActiveCurrencyCode `xml:"Ccy,attr"`
	Value string                    `xml:",chardata"`
}

type DateAndDateTimeChoice struct {
	Dt string `xml:"Dt"`
}

type ReportEntry2 struct {
	Amt       ActiveCurrencyAndAmount `xml:"Amt"`
	CdtDbtInd string                  `xml:"CdtDbtInd"`
	Sts       string                  `xml:"Sts"`
	BookgDt   DateAndDateTimeChoice   `xml:"BookgDt"`
	ValDt     DateAndDateTimeChoice   `xml:"ValDt"`
	BkTxCd    BankTransactionCode     `xml:"BkTxCd"`
	NtryDtls  EntryDetails            `xml:"NtryDtls"`
}

type BankTransactionCode struct {
	Domn BankTransactionCodeDomain `xml:"Domn"`
}

type BankTransactionCodeDomain struct {
	Cd   string                    `xml:"Cd"`
	Fmly BankTransactionCodeFamily `xml:"Fmly"`
}

type BankTransactionCodeFamily struct {
	Cd        string `xml:"Cd"`
	SubFmlyCd string `xml:"SubFmlyCd"`
}

type EntryDetails struct {
	TxDtls EntryTransaction `xml:"TxDtls"`
}

type EntryTransaction struct {
	Refs      TransactionReferences  `xml:"Refs"`
	RltdPties *TransactionParties    `xml:"RltdPties,omitempty"`
	RmtInf    *RemittanceInformation `xml:"RmtInf,omitempty"`
}

type TransactionReferences struct {
	EndToEndId *common.Max35Text `xml:"EndToEndId,omitempty"`
	TxId       common.Max35Text  `xml:"TxId"`
}

type TransactionParties struct {
	Dbtr     *PartyName   `xml:"Dbtr,omitempty"`
	DbtrAcct *CashAccount `xml:"DbtrAcct,omitempty"`
	Cdtr     *PartyName   `xml:"Cdtr,omitempty"`
	CdtrAcct *CashAccount `xml:"CdtrAcct,omitempty"`
}

type CashAccount struct {
	Id AccountIdentification `xml:"Id"`
}

type RemittanceInformation struct {
	Ustrd common.Max140Text `xml:"Ustrd"`
}

// Camt053Service builds camt.053 statements and exposes the render endpoint
type Camt053Service struct {
	validator *ValidationHelper
}

func NewCamt053Service() *Camt053Service {
	return &Camt053Service{
		validator: NewValidationHelper(),
	}
}

var _ StatementBuilder = (*Camt053Service)(nil)

// RenderStatement renders a posted statement document
// @Summary Render camt.053
// @Description Render an assembled statement document to camt.053.001.02 XML
// @Tags camt053
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param statement body models.StatementDocument true "Statement to render"
// @Success 200 {object} object{status=string,messageType=string,xml=string,reconciliation=models.Reconciliation}
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /camt053/render [post]
func (s *Camt053Service) RenderStatement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req models.StatementDocument
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req.Account); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	xmlData, err := s.RenderCAMT053(req)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "rendered",
		"messageType":    Camt053MessageType,
		"xml":            xmlData,
		"reconciliation": Reconcile(req.Opening, req.Closing, req.Transactions, DefaultTolerance),
	})
}

// BuildStatement renders doc as an XML document including the XML header
func (s *Camt053Service) BuildStatement(doc models.StatementDocument) ([]byte, error) {
	out, err := s.RenderCAMT053(doc)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// RenderCAMT053 renders doc as an XML string
func (s *Camt053Service) RenderCAMT053(doc models.StatementDocument) (string, error) {
	camt, err := s.CreateCamt053(doc)
	if err != nil {
		return "", err
	}
	return s.ConvertToXML(camt)
}

// CreateCamt053 maps a statement document onto the camt.053 element tree
func (s *Camt053Service) CreateCamt053(doc models.StatementDocument) (*Camt053Document, error) {
	if !doc.StatementDate.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatementDate, doc.StatementDate.String())
	}
	iban := NormalizeIBAN(doc.Account.IBAN)
	if iban == "" {
		return nil, fmt.Errorf("statement account has no IBAN")
	}
	currency := strings.ToUpper(doc.Account.Currency)
	if currency == "" {
		currency = doc.Closing.Currency
	}
	if !strings.EqualFold(doc.Opening.Currency, currency) || !strings.EqualFold(doc.Closing.Currency, currency) {
		return nil, fmt.Errorf("%w: account %s, opening %s, closing %s",
			ErrCurrencyMismatch, currency, doc.Opening.Currency, doc.Closing.Currency)
	}

	from, to := doc.Period()
	msgID := doc.MessageID
	if msgID == "" {
		msgID = PeriodMessageID(from, to, doc.Sequence)
	}
	stmtID := doc.StatementID
	if stmtID == "" {
		stmtID = PeriodStatementID(iban, from, to)
	}
	owner := SanitizeText(doc.Account.Name)
	if owner == "" {
		owner = DefaultOwnerName
	}
	bic := doc.ServicerBIC
	if bic == "" {
		bic = DefaultServicerBIC
	}
	created := creationTimestamp(doc)

	txns := make([]models.Transaction, len(doc.Transactions))
	copy(txns, doc.Transactions)
	SortTransactions(txns)

	entries := make([]ReportEntry2, 0, len(txns))
	for _, tx := range txns {
		entries = append(entries, reportEntry(tx, currency))
	}

	return &Camt053Document{
		BkToCstmrStmt: BankToCustomerStatementV2{
			GrpHdr: GroupHeader42{
				MsgId:   common.Max35Text(msgID),
				CreDtTm: created,
			},
			Stmt: AccountStatement2{
				Id:           common.Max35Text(stmtID),
				ElctrncSeqNb: ElectronicSequenceNumber(to, doc.Sequence),
				CreDtTm:      created,
				FrToDt: DateTimePeriod{
					FrDtTm: from.String() + "T00:00:00",
					ToDtTm: to.String() + "T23:59:59",
				},
				Acct: CashAccount20{
					Id:   AccountIdentification{IBAN: iban},
					Ccy:  common.ActiveCurrencyCode(currency),
					Ownr: PartyName{Nm: common.Max140Text(owner)},
					Svcr: BranchAndFinancialInstitution{
						FinInstnId: FinancialInstitutionIdentification{BIC: common.BICFIDec2014Identifier(bic)},
					},
				},
				Bal: []CashBalance3{
					cashBalance(doc.Opening, models.BalanceOpening, currency),
					cashBalance(doc.Closing, models.BalanceClosing, currency),
				},
				Ntry: entries,
			},
		},
	}, nil
}

// ConvertToXML converts a camt.053 document to an XML string
func (s *Camt053Service) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

// PeriodMessageID returns STMT<from>_<to><seq> for multi-day statements and
// STMT<to><seq> otherwise; seq below 1 means 1
func PeriodMessageID(from, to civil.Date, seq int) string {
	if seq < 1 {
		seq = 1
	}
	return fmt.Sprintf("STMT%s%03d", periodKey(from, to), seq)
}

// ElectronicSequenceNumber returns <YYYYMMDD><seq:03d>
func ElectronicSequenceNumber(date civil.Date, seq int) string {
	if seq < 1 {
		seq = 1
	}
	return fmt.Sprintf("%s%03d", CompactDate(date), seq)
}

// PeriodStatementID returns <IBAN>_<from>_<to>, or <IBAN>_<to> for a single
// day
func PeriodStatementID(iban string, from, to civil.Date) string {
	return NormalizeIBAN(iban) + "_" + periodKey(from, to)
}

// PeriodFileName returns CAMT053_<IBAN>_<from>_<to>.<ext>, or
// CAMT053_<IBAN>_<to>.<ext> for a single day
func PeriodFileName(iban string, from, to civil.Date, ext string) string {
	return fmt.Sprintf("CAMT053_%s_%s.%s", NormalizeIBAN(iban), periodKey(from, to), ext)
}

// DocumentFileName names the file of doc in format ext
func DocumentFileName(doc models.StatementDocument, ext string) string {
	from, to := doc.Period()
	return PeriodFileName(doc.Account.IBAN, from, to, ext)
}

func periodKey(from, to civil.Date) string {
	if !from.Before(to) {
		return CompactDate(to)
	}
	return CompactDate(from) + "_" + CompactDate(to)
}

// CompactDate formats d as YYYYMMDD
func CompactDate(d civil.Date) string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

// creationTimestamp falls back to the start of the statement date so that a
// document without a clock reading still renders the same way every time.
func creationTimestamp(doc models.StatementDocument) string {
	if doc.CreatedAt.IsZero() {
		return doc.StatementDate.In(time.UTC).Format(isoDateTimeLayout)
	}
	return doc.CreatedAt.Format(isoDateTimeLayout)
}

func cashBalance(b models.Balance, tp models.BalanceType, currency string) CashBalance3 {
	indicator := b.Indicator
	if indicator == "" {
		indicator = models.Credit
	}
	return CashBalance3{
		Tp:        BalanceType12{CdOrPrtry: BalanceTypeCode{Cd: tp.Code()}},
		Amt:       ActiveCurrencyAndAmount{Ccy: common.ActiveCurrencyCode(currency), Value: FormatAmount(b.Amount)},
		CdtDbtInd: string(indicator),
		Dt:        DateAndDateTimeChoice{Dt: b.ReferenceDate.String()},
	}
}

func reportEntry(tx models.Transaction, accountCurrency string) ReportEntry2 {
	currency := strings.ToUpper(tx.Currency)
	if currency == "" {
		currency = accountCurrency
	}
	valueDate := tx.ValueDate
	if !valueDate.IsValid() {
		valueDate = tx.BookingDate
	}

	family := familyReceivedCredit
	indicator := models.Credit
	if tx.Indicator == models.Debit {
		family = familyIssuedCredit
		indicator = models.Debit
	}

	details := EntryTransaction{
		Refs: TransactionReferences{TxId: common.Max35Text(tx.ID)},
	}
	if tx.EndToEndID != "" {
		e2e := common.Max35Text(tx.EndToEndID)
		details.Refs.EndToEndId = &e2e
	}
	details.RltdPties = relatedParties(tx)
	if tx.RemittanceInfo != "" {
		details.RmtInf = &RemittanceInformation{Ustrd: common.Max140Text(tx.RemittanceInfo)}
	}

	return ReportEntry2{
		Amt:       ActiveCurrencyAndAmount{Ccy: common.ActiveCurrencyCode(currency), Value: FormatAmount(tx.Amount)},
		CdtDbtInd: string(indicator),
		Sts:       entryStatusBooked,
		BookgDt:   DateAndDateTimeChoice{Dt: tx.BookingDate.String()},
		ValDt:     DateAndDateTimeChoice{Dt: valueDate.String()},
		BkTxCd: BankTransactionCode{
			Domn: BankTransactionCodeDomain{
				Cd:   domainPayments,
				Fmly: BankTransactionCodeFamily{Cd: family, SubFmlyCd: subFamilySEPACredit},
			},
		},
		NtryDtls: EntryDetails{TxDtls: details},
	}
}

func relatedParties(tx models.Transaction) *TransactionParties {
	var p TransactionParties
	if tx.DebtorName != "" {
		p.Dbtr = &PartyName{Nm: common.Max140Text(tx.DebtorName)}
	}
	if tx.DebtorIBAN != "" {
		p.DbtrAcct = &CashAccount{Id: AccountIdentification{IBAN: tx.DebtorIBAN}}
	}
	if tx.CreditorName != "" {
		p.Cdtr = &PartyName{Nm: common.Max140Text(tx.CreditorName)}
	}
	if tx.CreditorIBAN != "" {
		p.CdtrAcct = &CashAccount{Id: AccountIdentification{IBAN: tx.CreditorIBAN}}
	}
	if p == (TransactionParties{}) {
		return nil
	}
	return &p
}
