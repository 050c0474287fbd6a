// Package js holds the helper functions that are evaluated in the page.
// Functions that use "this" are called with a remote object as the receiver,
// such as the handle returned by Overlay or an element.
package js

// Function definition
type Function struct {
	Name       string
	Definition string
}

// Attr marks the nodes created by regionshot so that they are never treated as page content
const Attr = "data-regionshot"

// DevicePixelRatio of the window
var DevicePixelRatio = &Function{
	Name:       "devicePixelRatio",
	Definition: `() => window.devicePixelRatio || 1`,
}

// ScrollParent returns the closest ancestor of the element under the point that
// actually scrolls vertically, null means the window. The nodes of regionshot,
// such as the overlay, are looked through.
var ScrollParent = &Function{
	Name: "scrollParent",
	Definition: `(x, y) => {
	let el = document.elementsFromPoint(x, y).find((n) => !n.closest('[` + Attr + `]'))
	while (el && el !== document.body && el !== document.documentElement) {
		const style = getComputedStyle(el)
		if (/(auto|scroll)/.test(style.overflowY) && el.scrollHeight > el.clientHeight) {
			return el
		}
		el = el.parentElement
	}
	return null
}`,
}

// WindowScrollTop of the document
var WindowScrollTop = &Function{
	Name:       "windowScrollTop",
	Definition: `() => window.scrollY`,
}

// WindowScrollTo moves the document vertically
var WindowScrollTo = &Function{
	Name:       "windowScrollTo",
	Definition: `(y) => { window.scrollTo(window.scrollX, y) }`,
}

// WindowScrollBy moves the document vertically by a delta
var WindowScrollBy = &Function{
	Name:       "windowScrollBy",
	Definition: `(dy) => { window.scrollBy(0, dy) }`,
}

// WindowClientHeight is the height of the viewport
var WindowClientHeight = &Function{
	Name:       "windowClientHeight",
	Definition: `() => window.innerHeight`,
}

// ElementScrollTop of this element
var ElementScrollTop = &Function{
	Name:       "elementScrollTop",
	Definition: `function () { return this.scrollTop }`,
}

// ElementScrollTo sets the scrollTop of this element
var ElementScrollTo = &Function{
	Name:       "elementScrollTo",
	Definition: `function (y) { this.scrollTop = y }`,
}

// ElementScrollBy changes the scrollTop of this element by a delta
var ElementScrollBy = &Function{
	Name:       "elementScrollBy",
	Definition: `function (dy) { this.scrollTop += dy }`,
}

// ElementClientHeight is the visible height of this element
var ElementClientHeight = &Function{
	Name:       "elementClientHeight",
	Definition: `function () { return this.clientHeight }`,
}

// Overlay covers the viewport with a crosshair layer and shows the instructions.
// It returns the handle used by DrawSelection and RemoveOverlay.
var Overlay = &Function{
	Name: "overlay",
	Definition: `(text) => {
	const overlay = document.createElement('div')
	overlay.setAttribute('` + Attr + `', 'overlay')
	Object.assign(overlay.style, {
		position: 'fixed', top: 0, left: 0, width: '100vw', height: '100vh',
		backgroundColor: 'rgba(0,0,0,0.15)', zIndex: 999999, cursor: 'crosshair',
	})

	const instructions = document.createElement('div')
	instructions.setAttribute('` + Attr + `', 'instructions')
	Object.assign(instructions.style, {
		position: 'fixed', top: '20px', left: '50%', transform: 'translateX(-50%)',
		backgroundColor: 'rgba(0,0,0,0.7)', color: 'white', padding: '10px 20px',
		borderRadius: '5px', fontFamily: 'system-ui, sans-serif', fontSize: '14px',
		zIndex: 1000001, pointerEvents: 'none',
	})
	instructions.textContent = text

	document.body.appendChild(overlay)
	document.body.appendChild(instructions)

	return { nodes: [overlay, instructions], box: null }
}`,
}

// DrawSelection renders the live rectangle in viewport coordinates
var DrawSelection = &Function{
	Name: "drawSelection",
	Definition: `function (left, top, width, height) {
	if (!this.box) {
		this.box = document.createElement('div')
		this.box.setAttribute('` + Attr + `', 'selection')
		Object.assign(this.box.style, {
			position: 'fixed', border: '2px dashed red',
			backgroundColor: 'rgba(255, 255, 255, 0.3)', zIndex: 1000000,
			pointerEvents: 'none', boxSizing: 'border-box',
		})
		document.body.appendChild(this.box)
	}
	Object.assign(this.box.style, {
		left: left + 'px', top: top + 'px', width: width + 'px', height: height + 'px',
	})
}`,
}

// RemoveOverlay removes the overlay, the instructions and the live rectangle
var RemoveOverlay = &Function{
	Name: "removeOverlay",
	Definition: `function () {
	this.nodes.forEach((n) => n.remove())
	if (this.box) this.box.remove()
}`,
}

// HideFixed hides every sticky or fixed element, the original inline
// visibility of each one is kept in the returned handle for RestoreFixed.
var HideFixed = &Function{
	Name: "hideFixed",
	Definition: `() => {
	const list = []
	document.querySelectorAll('*').forEach((el) => {
		if (el.hasAttribute('` + Attr + `')) return
		const position = getComputedStyle(el).position
		if (position === 'sticky' || position === 'fixed') {
			list.push({ el, visibility: el.style.visibility })
			el.style.visibility = 'hidden'
		}
	})
	return { list }
}`,
}

// RestoreFixed undoes HideFixed
var RestoreFixed = &Function{
	Name: "restoreFixed",
	Definition: `function () {
	this.list.forEach(({ el, visibility }) => { el.style.visibility = visibility })
	return this.list.length
}`,
}

// Indicator creates the progress indicator, the handle is the node itself
var Indicator = &Function{
	Name: "indicator",
	Definition: `(text) => {
	const el = document.createElement('div')
	el.setAttribute('` + Attr + `', 'indicator')
	Object.assign(el.style, {
		position: 'fixed', bottom: '20px', right: '20px',
		backgroundColor: 'rgba(0,0,0,0.8)', color: 'white', padding: '10px 15px',
		borderRadius: '8px', fontFamily: 'system-ui, sans-serif', fontSize: '14px',
		zIndex: 1000001, minWidth: '150px', textAlign: 'center',
	})
	el.textContent = text
	document.body.appendChild(el)
	return el
}`,
}

// ShowIndicator attaches this indicator and updates its text if not empty
var ShowIndicator = &Function{
	Name: "showIndicator",
	Definition: `function (text) {
	if (text) this.textContent = text
	if (!this.isConnected) document.body.appendChild(this)
}`,
}

// HideIndicator detaches this indicator
var HideIndicator = &Function{
	Name:       "hideIndicator",
	Definition: `function () { this.remove() }`,
}

// Notice shows a toast for a while
var Notice = &Function{
	Name: "notice",
	Definition: `(text, failed, duration) => {
	const el = document.createElement('div')
	el.setAttribute('` + Attr + `', 'notice')
	Object.assign(el.style, {
		position: 'fixed', bottom: '20px', right: '20px',
		backgroundColor: failed ? 'rgba(176,0,32,0.85)' : 'rgba(0,128,0,0.8)',
		color: 'white', padding: '10px 15px', borderRadius: '8px',
		fontFamily: 'system-ui, sans-serif', fontSize: '14px', zIndex: 1000001,
	})
	el.textContent = text
	document.body.appendChild(el)
	setTimeout(() => el.remove(), duration)
}`,
}

// ListenPointer forwards the drag and the Escape key to the binding of the name.
// Each payload is a json string like {"type":"move","x":1,"y":2,"height":600}.
var ListenPointer = &Function{
	Name: "listenPointer",
	Definition: `(name) => {
	const send = (type, e) => {
		if (typeof window[name] !== 'function') return
		window[name](JSON.stringify({
			type, x: e ? e.clientX : 0, y: e ? e.clientY : 0, height: window.innerHeight,
		}))
	}

	let dragging = false
	const down = (e) => {
		if (e.button !== 0) return
		dragging = true
		e.preventDefault()
		send('down', e)
	}
	const move = (e) => { if (dragging) send('move', e) }
	const up = (e) => {
		if (!dragging) return
		dragging = false
		send('up', e)
	}
	const key = (e) => { if (e.key === 'Escape') send('cancel') }

	document.addEventListener('mousedown', down, true)
	document.addEventListener('mousemove', move, true)
	document.addEventListener('mouseup', up, true)
	document.addEventListener('keydown', key, true)

	return {
		remove() {
			document.removeEventListener('mousedown', down, true)
			document.removeEventListener('mousemove', move, true)
			document.removeEventListener('mouseup', up, true)
			document.removeEventListener('keydown', key, true)
		},
	}
}`,
}

// Remove calls the remove method of this handle
var Remove = &Function{
	Name:       "remove",
	Definition: `function () { this.remove() }`,
}
