// Package ui implements an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The TUI provides three views over a running engine, cycled with tab:
//  1. [CatalogView] : Browse and filter the announced track catalog
//  2. [RequestsView] : Review the pending missing-song tally
//  3. [StatsView] : Totals for users, tracks, requests, and revenue
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Data loads through commands so a refresh never blocks the event loop.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, r, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
