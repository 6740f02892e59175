// Package lending enforces the borrowing policy on top of a types.Store.
//
// Each book is either Available or Loaned. Borrow moves a book from
// Available to Loaned and Return moves it back; no other transition exists.
// A request that does not fit the current state fails with a policy error
// and leaves the store unchanged.
//
// Every mutating operation reads the state it needs, decides with a pure
// function, and writes inside a single Store.Update. The store serializes
// updates, so two borrowers racing for the same book (or one borrower
// racing against the loan limit) cannot both win.
package lending
