package dashboard

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>SpiralBot Dashboard</title>
<style>
  body { font-family: sans-serif; background: #0f172a; color: #e2e8f0; margin: 2rem; }
  h1 { color: #38bdf8; }
  .cards { display: flex; gap: 1rem; flex-wrap: wrap; }
  .card { background: #1e293b; border-radius: 8px; padding: 1rem 1.5rem; min-width: 10rem; }
  .card .label { font-size: 0.8rem; color: #94a3b8; }
  .card .value { font-size: 1.4rem; margin-top: 0.25rem; }
  .pos { color: #4ade80; } .neg { color: #f87171; }
  table { border-collapse: collapse; margin-top: 1.5rem; width: 100%; }
  th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #334155; }
  button { background: #38bdf8; border: none; border-radius: 6px; padding: 0.5rem 1rem; cursor: pointer; margin-right: 0.5rem; }
</style>
</head>
<body>
<h1>SpiralBot &mdash; Simulation Dashboard</h1>
<p id="status">checking worker&hellip;</p>
<p>
  <button onclick="control('start')">Start worker</button>
  <button onclick="control('stop')">Stop worker</button>
</p>
<div class="cards">
  <div class="card"><div class="label">Equity</div><div class="value" id="equity">&ndash;</div></div>
  <div class="card"><div class="label">Trades</div><div class="value" id="trades">&ndash;</div></div>
  <div class="card"><div class="label">Win rate</div><div class="value" id="winrate">&ndash;</div></div>
  <div class="card"><div class="label">Total P&amp;L</div><div class="value" id="pnl">&ndash;</div></div>
</div>
<table>
  <thead><tr><th>Time</th><th>Symbol</th><th>Action</th><th>Price</th><th>P&amp;L</th><th>Equity</th></tr></thead>
  <tbody id="events"></tbody>
</table>
<script>
function renderSummary(s) {
  document.getElementById('equity').textContent = '£' + s.equity.toFixed(2);
  document.getElementById('trades').textContent = s.total_trades;
  document.getElementById('winrate').textContent = s.win_rate_pct.toFixed(1) + '%';
  const pnl = document.getElementById('pnl');
  pnl.textContent = '£' + s.total_pnl.toFixed(2);
  pnl.className = 'value ' + (s.total_pnl >= 0 ? 'pos' : 'neg');
}
async function refresh() {
  const st = await (await fetch('/api/status')).json();
  document.getElementById('status').textContent =
    st.running ? 'worker running (pid ' + st.pid + ')' : 'worker stopped';
  renderSummary(await (await fetch('/api/summary')).json());
  const ev = await (await fetch('/api/events?limit=25')).json();
  document.getElementById('events').innerHTML = ev.events.map(e =>
    '<tr><td>' + e.timestamp + '</td><td>' + e.symbol + '</td><td>' + e.action +
    '</td><td>' + e.price + '</td><td>' + e.pnl.toFixed(2) + '</td><td>' +
    e.equity.toFixed(2) + '</td></tr>').join('');
}
async function control(op) {
  await fetch('/api/bot/' + op, {method: 'POST'});
  refresh();
}
const ws = new WebSocket('ws://' + location.host + '/ws');
ws.onmessage = (msg) => renderSummary(JSON.parse(msg.data));
refresh();
setInterval(refresh, 30000);
</script>
</body>
</html>
`
